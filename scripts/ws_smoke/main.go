package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/hmirc/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/irc", "WebSocket address")
	pass := flag.String("pass", "", "chat pass or token sent as PASS")
	nick := flag.String("nick", "", "identity to log in as")
	channel := flag.String("channel", "", "channel to message after login (optional)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	if *pass == "" || *nick == "" {
		return fmt.Errorf("-pass and -nick are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(cmd string, params ...string) error {
		line := proto.NewMessage(proto.Prefix{}, cmd, params...).String()
		if err := conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
			return fmt.Errorf("send %s: %w", cmd, err)
		}
		return nil
	}

	if err := send(proto.CmdPass, *pass); err != nil {
		return err
	}
	if err := send(proto.CmdNick, *nick); err != nil {
		return err
	}
	if err := send(proto.CmdUser, *nick, "0", "*", *nick); err != nil {
		return err
	}

	sent := false
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Println(string(data))

		msg, err := proto.Parse(string(data))
		if err != nil {
			continue
		}
		switch msg.Command {
		case proto.ErrPasswdMismatch, proto.ErrErroneusNick:
			return fmt.Errorf("login rejected: %s", msg.Param(len(msg.Params)-1))
		case proto.CmdError:
			return nil
		case proto.RplEndOfNames:
			if *channel != "" && !sent {
				if err := send(proto.CmdPrivmsg, proto.NormalizeChannel(*channel), *text); err != nil {
					return err
				}
				sent = true
			}
		case proto.CmdPrivmsg:
			// First relayed message ends the smoke run.
			return send(proto.CmdQuit, "smoke test done")
		}
	}
}
