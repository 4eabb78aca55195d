// Command client is an interactive test client for the room server. It
// creates or joins a room, prints what the server sends and turns stdin
// lines into messages.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/network"
)

const help = "commands: start | reset | move N | pass | chat TEXT | ready | unready | resync | list | leave | quit"

func main() {
	cmd := &cli.Command{
		Name:  "roomsync-client",
		Usage: "interactive room client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:8080", Usage: "server host:port"},
			&cli.StringFlag{Name: "name", Required: true, Usage: "player name"},
			&cli.StringFlag{Name: "code", Usage: "room code to join; a new room is created when empty"},
			&cli.StringFlag{Name: "token", Usage: "reconnection token from an earlier session"},
			&cli.StringFlag{Name: "room-name", Usage: "display name of a newly created room"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// client serializes writes to the socket and tracks the room's sequence.
type client struct {
	conn  *websocket.Conn
	mutex sync.Mutex

	seq       network.SeqTracker
	resyncing bool
}

func (c *client) send(env *network.Envelope) error {
	data, err := network.Encode(env)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := logger.Init("info", true); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	u := url.URL{Scheme: "ws", Host: cmd.String("addr"), Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	c := &client{conn: conn}
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.readLoop()
	}()

	first := &network.Envelope{Type: network.MsgTypeCreateRoom, Name: cmd.String("name"), RoomName: cmd.String("room-name")}
	if code := cmd.String("code"); code != "" {
		first = &network.Envelope{Type: network.MsgTypeJoinRoom, Code: code, Name: cmd.String("name"), Token: cmd.String("token")}
	}
	if err := c.send(first); err != nil {
		return err
	}
	fmt.Println(help)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			c.close(done)
			return nil
		case line, ok := <-lines:
			if !ok || line == "quit" {
				c.close(done)
				return nil
			}
			env, err := parseCommand(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if env == nil {
				continue
			}
			if err := c.send(env); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

// close says goodbye and waits briefly for the server to hang up.
func (c *client) close(done <-chan struct{}) {
	c.mutex.Lock()
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mutex.Unlock()
	if err != nil {
		logger.Log.Warnf("Write close: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func parseCommand(line string) (*network.Envelope, error) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch verb {
	case "":
		return nil, nil
	case "start":
		return &network.Envelope{Type: network.MsgTypeStartGame}, nil
	case "reset":
		return &network.Envelope{Type: network.MsgTypeResetGame}, nil
	case "move":
		steps, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("usage: move N")
		}
		payload, _ := json.Marshal(map[string]any{"type": "move", "steps": steps})
		return &network.Envelope{Type: network.MsgTypePlayerAction, Payload: payload}, nil
	case "pass":
		return &network.Envelope{Type: network.MsgTypePlayerAction, Payload: json.RawMessage(`{"type":"pass"}`)}, nil
	case "chat":
		return &network.Envelope{Type: network.MsgTypeChat, Text: rest}, nil
	case "ready", "unready":
		ready := verb == "ready"
		return &network.Envelope{Type: network.MsgTypeSetReady, Ready: &ready}, nil
	case "resync":
		return &network.Envelope{Type: network.MsgTypeResync}, nil
	case "list":
		return &network.Envelope{Type: network.MsgTypeRoomList}, nil
	case "leave":
		return &network.Envelope{Type: network.MsgTypeLeaveRoom}, nil
	default:
		return nil, fmt.Errorf("unknown command %q; %s", verb, help)
	}
}

func (c *client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Infof("Connection closed: %v", err)
			return
		}
		env, err := network.Decode(data)
		if err != nil {
			logger.Log.Warnf("Dropping frame: %v", err)
			continue
		}
		c.handle(env, data)
	}
}

func (c *client) handle(env *network.Envelope, raw []byte) {
	switch env.Type {
	case network.MsgTypeHeartbeat:
		if err := c.send(&network.Envelope{Type: network.MsgTypeHeartbeat}); err != nil {
			logger.Log.Warnf("Heartbeat reply: %v", err)
		}
		return

	case network.MsgTypeRoomJoined:
		c.seq = network.SeqTracker{}
		c.resyncing = false
		fmt.Printf("joined room %s as %s (token %s)\n", env.Code, env.PlayerID, env.Token)
		return

	case network.MsgTypeStateSnapshot:
		if c.seq.Reset(env.Seq) {
			c.resyncing = false
			fmt.Printf("<- snapshot #%d %s\n", env.Seq, raw)
		}
		return

	case network.MsgTypePresence, network.MsgTypeStateDelta, network.MsgTypeChat, network.MsgTypeGameOver:
		switch c.seq.Observe(env.Seq) {
		case network.SeqApply:
			fmt.Printf("<- #%d %s\n", env.Seq, raw)
		case network.SeqDuplicate:
		case network.SeqGap:
			if !c.resyncing {
				c.resyncing = true
				logger.Log.Warnf("Sequence gap at %d after %d, resyncing", env.Seq, c.seq.Last())
				if err := c.send(&network.Envelope{Type: network.MsgTypeResync}); err != nil {
					logger.Log.Warnf("Resync request: %v", err)
				}
			}
		}
		return
	}
	fmt.Printf("<- %s\n", raw)
}
