package redwing

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/birbparty/redwing/resp"
)

// mockServer is a test TCP server that speaks RESP. Each decoded command
// is handed to the handler in arrival order; whatever the handler returns
// is written back verbatim, and nil sends nothing. Tests can also inject
// raw frames with push and kill the connection with dropConns.
type mockServer struct {
	t       *testing.T
	ln      net.Listener
	handler func(cmd []string) []byte

	mu       sync.Mutex
	wmu      sync.Mutex
	conns    []net.Conn
	commands [][]string

	wg sync.WaitGroup
}

func newMockServer(t *testing.T, handler func(cmd []string) []byte) *mockServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("mock server listen: %v", err)
	}
	s := &mockServer{t: t, ln: ln, handler: handler}
	s.wg.Add(1)
	go s.acceptLoop()
	return s
}

func (s *mockServer) addr() string {
	return s.ln.Addr().String()
}

func (s *mockServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *mockServer) serve(conn net.Conn) {
	defer s.wg.Done()
	buf := make([]byte, 4096)
	var acc []byte
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for len(acc) > 0 {
				v, used, derr := resp.Decode(acc)
				if errors.Is(derr, resp.ErrIncomplete) {
					break
				}
				if derr != nil {
					return
				}
				acc = acc[used:]

				cmd := make([]string, len(v.Elems))
				for i, e := range v.Elems {
					cmd[i] = e.Text()
				}
				s.mu.Lock()
				s.commands = append(s.commands, cmd)
				s.mu.Unlock()

				if reply := s.handler(cmd); reply != nil {
					s.write(conn, reply)
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *mockServer) write(conn net.Conn, frame []byte) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	conn.Write(frame)
}

// push injects a raw frame on the most recent connection, the way a
// server pushes pub/sub traffic.
func (s *mockServer) push(frame []byte) {
	s.t.Helper()
	s.mu.Lock()
	if len(s.conns) == 0 {
		s.mu.Unlock()
		s.t.Fatal("push: no active connection")
	}
	conn := s.conns[len(s.conns)-1]
	s.mu.Unlock()
	s.write(conn, frame)
}

// dropConns closes every accepted connection, simulating the server side
// going away mid-conversation.
func (s *mockServer) dropConns() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

// waitCommands blocks until the server has received at least n commands.
func (s *mockServer) waitCommands(n int) {
	s.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		got := len(s.commands)
		s.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			s.t.Fatalf("timed out waiting for %d commands, got %d", n, got)
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *mockServer) commandAt(i int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.commands) {
		return nil
	}
	return s.commands[i]
}

func (s *mockServer) Close() {
	s.ln.Close()
	s.dropConns()
	s.wg.Wait()
}

// Frame builders for handler replies and pushes.

func respStatus(msg string) []byte {
	return []byte("+" + msg + "\r\n")
}

func respErr(msg string) []byte {
	return []byte("-" + msg + "\r\n")
}

func respInt(n int64) []byte {
	return []byte(":" + strconv.FormatInt(n, 10) + "\r\n")
}

func respBulk(s string) []byte {
	return []byte(fmt.Sprintf("$%d\r\n%s\r\n", len(s), s))
}

func respNullBulk() []byte {
	return []byte("$-1\r\n")
}

func respNullArray() []byte {
	return []byte("*-1\r\n")
}

func respArray(elems ...[]byte) []byte {
	out := []byte("*" + strconv.Itoa(len(elems)) + "\r\n")
	for _, e := range elems {
		out = append(out, e...)
	}
	return out
}

// respAck builds a subscription acknowledgement push frame.
func respAck(kind, name string, count int64) []byte {
	return respArray(respBulk(kind), respBulk(name), respInt(count))
}

// respAckNilName builds the acknowledgement a server sends for an
// unsubscribe-all with nothing subscribed.
func respAckNilName(kind string) []byte {
	return respArray(respBulk(kind), respNullBulk(), respInt(0))
}

func respMessage(channel, payload string) []byte {
	return respArray(respBulk("message"), respBulk(channel), respBulk(payload))
}

func respPMessage(pattern, channel, payload string) []byte {
	return respArray(respBulk("pmessage"), respBulk(pattern), respBulk(channel), respBulk(payload))
}

// kvHandler answers a useful subset of commands against in-memory state,
// enough for client-level tests that do not script replies by hand.
func kvHandler() func(cmd []string) []byte {
	store := make(map[string]string)
	lists := make(map[string][]string)
	counters := make(map[string]int64)
	return func(cmd []string) []byte {
		if len(cmd) == 0 {
			return respErr("ERR empty command")
		}
		switch strings.ToUpper(cmd[0]) {
		case "PING":
			return respStatus("PONG")
		case "ECHO":
			return respBulk(cmd[1])
		case "SELECT":
			return respStatus("OK")
		case "SET":
			store[cmd[1]] = cmd[2]
			return respStatus("OK")
		case "GET":
			if v, ok := store[cmd[1]]; ok {
				return respBulk(v)
			}
			return respNullBulk()
		case "DEL":
			var n int64
			for _, k := range cmd[1:] {
				if _, ok := store[k]; ok {
					delete(store, k)
					n++
				}
			}
			return respInt(n)
		case "INCR":
			counters[cmd[1]]++
			return respInt(counters[cmd[1]])
		case "RPUSH":
			lists[cmd[1]] = append(lists[cmd[1]], cmd[2:]...)
			return respInt(int64(len(lists[cmd[1]])))
		case "LRANGE":
			items := lists[cmd[1]]
			elems := make([][]byte, len(items))
			for i, it := range items {
				elems[i] = respBulk(it)
			}
			return respArray(elems...)
		case "PUBLISH":
			return respInt(1)
		case "QUIT":
			return respStatus("OK")
		}
		return respErr("ERR unknown command '" + cmd[0] + "'")
	}
}

// silentHandler never replies; tests drive replies by hand with push.
func silentHandler() func(cmd []string) []byte {
	return func([]string) []byte { return nil }
}

// pubsubHandler acknowledges subscription commands the way a server
// does, tracking subscription order so unsubscribe-all acks every name.
func pubsubHandler() func(cmd []string) []byte {
	var channels, patterns []string
	total := func() int64 { return int64(len(channels) + len(patterns)) }
	contains := func(list []string, name string) bool {
		for _, n := range list {
			if n == name {
				return true
			}
		}
		return false
	}
	remove := func(list []string, name string) []string {
		out := list[:0]
		for _, n := range list {
			if n != name {
				out = append(out, n)
			}
		}
		return out
	}
	return func(cmd []string) []byte {
		switch strings.ToUpper(cmd[0]) {
		case "SUBSCRIBE":
			var out []byte
			for _, ch := range cmd[1:] {
				if !contains(channels, ch) {
					channels = append(channels, ch)
				}
				out = append(out, respAck("subscribe", ch, total())...)
			}
			return out
		case "PSUBSCRIBE":
			var out []byte
			for _, p := range cmd[1:] {
				if !contains(patterns, p) {
					patterns = append(patterns, p)
				}
				out = append(out, respAck("psubscribe", p, total())...)
			}
			return out
		case "UNSUBSCRIBE":
			names := cmd[1:]
			if len(names) == 0 {
				names = append([]string(nil), channels...)
			}
			if len(names) == 0 {
				return respAckNilName("unsubscribe")
			}
			var out []byte
			for _, ch := range names {
				channels = remove(channels, ch)
				out = append(out, respAck("unsubscribe", ch, total())...)
			}
			return out
		case "PUNSUBSCRIBE":
			names := cmd[1:]
			if len(names) == 0 {
				names = append([]string(nil), patterns...)
			}
			if len(names) == 0 {
				return respAckNilName("punsubscribe")
			}
			var out []byte
			for _, p := range names {
				patterns = remove(patterns, p)
				out = append(out, respAck("punsubscribe", p, total())...)
			}
			return out
		case "PING":
			return respStatus("PONG")
		case "GET":
			return respNullBulk()
		}
		return respErr("ERR unknown command '" + cmd[0] + "'")
	}
}
