package core

import "github.com/vovakirdan/hmirc/internal/proto"

// channelSet holds joined channel names in join order.
type channelSet struct {
	order []string
	index map[string]struct{}
}

func newChannelSet() *channelSet {
	return &channelSet{index: make(map[string]struct{})}
}

func (c *channelSet) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

func (c *channelSet) Add(name string) bool {
	if c.Has(name) {
		return false
	}
	c.index[name] = struct{}{}
	c.order = append(c.order, name)
	return true
}

func (c *channelSet) Remove(name string) bool {
	if !c.Has(name) {
		return false
	}
	delete(c.index, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns a copy of the joined channels in join order.
func (c *channelSet) List() []string {
	return append([]string(nil), c.order...)
}

// MembershipChange is one leave or join in a channel swap.
type MembershipChange struct {
	Join    bool
	Channel string
}

// PlanSwap returns the changes for an identity swap: leave every previous
// channel, then join every channel of the new identity in its given order.
// The lists are not diffed; a channel in both is left and joined again.
func PlanSwap(previous []string, next []string) []MembershipChange {
	out := make([]MembershipChange, 0, len(previous)+len(next))
	for _, ch := range previous {
		out = append(out, MembershipChange{Channel: proto.NormalizeChannel(ch)})
	}
	seen := make(map[string]struct{}, len(next))
	for _, ch := range next {
		ch = proto.NormalizeChannel(ch)
		if _, dup := seen[ch]; dup {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, MembershipChange{Join: true, Channel: ch})
	}
	return out
}

// applySwapLocked emits the leave and join events of an identity swap.
func (s *Session) applySwapLocked(next []string) {
	for _, change := range PlanSwap(s.joined.List(), next) {
		if change.Join {
			s.joinLocked(change.Channel)
		} else {
			s.leaveLocked(change.Channel)
		}
	}
}

// joinLocked adds channel to the joined set and emits the join followed by a
// membership list containing only this session.
func (s *Session) joinLocked(channel string) {
	channel = proto.NormalizeChannel(channel)
	s.joined.Add(channel)
	s.emitLocked(&Event{Kind: EventJoined, Channel: channel})
	s.emitLocked(&Event{Kind: EventNames, Channel: channel})
}

// leaveLocked removes channel from the joined set and emits the removal.
func (s *Session) leaveLocked(channel string) {
	channel = proto.NormalizeChannel(channel)
	s.joined.Remove(channel)
	s.emitLocked(&Event{Kind: EventLeft, Channel: channel})
}

// ownsChannelLocked reports whether the active identity belongs to channel.
func (s *Session) ownsChannelLocked(channel string) bool {
	for _, ch := range s.identityChannels {
		if proto.NormalizeChannel(ch) == channel {
			return true
		}
	}
	return false
}
