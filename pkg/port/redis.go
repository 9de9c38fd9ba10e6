package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nobletooth/dlist/pkg/list"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/redcon"
)

const RedisOk = "OK"

var address = flag.String("address", ":6380", "The ip:port to listen on for Redis protocol.")

var commandsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dlist_commands_total",
	Help: "The total number of Redis commands handled, by command name.",
}, []string{"command"})

var errInvalidIndex = errors.New("value is not an integer or out of range")

// knownCommands bounds the label values of commandsMetric; everything else is counted as "unknown".
var knownCommands = map[string]struct{}{
	"PING": {}, "QUIT": {}, "DEL": {}, "RPUSH": {}, "LPUSH": {}, "LLEN": {}, "LINDEX": {}, "RPOP": {}, "LPOP": {},
	"LPOS": {}, "LCONTAINS": {}, "LINSERTAT": {}, "LREMAT": {}, "LRANGEALL": {}, "LDUMP": {}, "LCHECK": {},
}

// redisCommand represents a Redis command with its arguments.
type redisCommand struct {
	command string
	args    []string
}

// redisOutput conforms to a real Redis server output on non pub / sub commands.
type redisOutput struct {
	closeConnection bool     // Closes the connection if true.
	writeNil        bool     // Writes a nil value if true.
	err             *string  // Error to return if set.
	writeInt        *int     // Writes an integer value if set.
	writeBulk       *string  // Writes a bulk string if set.
	writeArray      []string // Writes an array of bulk strings if `isArray` is set.
	isArray         bool
	writeString     string // Writes a simple string otherwise.
}

func closeRedisConnection(msg string) redisOutput {
	return redisOutput{writeString: msg, closeConnection: true}
}

func writeRedisNil() redisOutput {
	return redisOutput{writeNil: true}
}

func writeRedisInt(i int) redisOutput {
	return redisOutput{writeInt: &i}
}

func writeRedisString(s string) redisOutput {
	return redisOutput{writeString: s}
}

func writeRedisBulk(s string) redisOutput {
	return redisOutput{writeBulk: &s}
}

func writeRedisArray(values []string) redisOutput {
	return redisOutput{writeArray: values, isArray: true}
}

func writeRedisError(err error) redisOutput {
	msg := "ERR " + err.Error()
	return redisOutput{err: &msg}
}

func wrongArity(command string) redisOutput {
	return writeRedisError(fmt.Errorf("wrong number of arguments for '%s' command", strings.ToLower(command)))
}

// write sends the output to the client.
func (o redisOutput) write(conn redcon.Conn) {
	switch {
	case o.err != nil:
		conn.WriteError(*o.err)
	case o.writeNil:
		conn.WriteNull()
	case o.writeInt != nil:
		conn.WriteInt(*o.writeInt)
	case o.writeBulk != nil:
		conn.WriteBulkString(*o.writeBulk)
	case o.isArray:
		conn.WriteArray(len(o.writeArray))
		for _, value := range o.writeArray {
			conn.WriteBulkString(value)
		}
	default:
		conn.WriteString(o.writeString)
	}
}

type redisHandler struct {
	keyspace *Keyspace
}

// newRedisHandler creates a new redisHandler.
func newRedisHandler(keyspace *Keyspace) (*redisHandler, error) {
	if keyspace == nil {
		return nil, errors.New("expected a non-nil keyspace")
	}
	return &redisHandler{keyspace: keyspace}, nil
}

// nodeOutput replies with the node value, or nil when there is no node.
func nodeOutput(node *list.Node[string]) redisOutput {
	if node == nil {
		return writeRedisNil()
	}
	return writeRedisBulk(node.Value)
}

func (rh *redisHandler) handle(cmd redisCommand) redisOutput {
	cmd.command = strings.ToUpper(cmd.command)
	if _, known := knownCommands[cmd.command]; known {
		commandsMetric.WithLabelValues(cmd.command).Inc()
	} else {
		commandsMetric.WithLabelValues("unknown").Inc()
	}

	switch cmd.command {
	case "PING":
		return writeRedisString("PONG")
	case "QUIT":
		return closeRedisConnection(RedisOk)
	case "DEL":
		if len(cmd.args) < 1 {
			return wrongArity(cmd.command)
		}
		deletedCount := 0
		for _, key := range cmd.args {
			if rh.keyspace.Delete(key) {
				deletedCount++
			}
		}
		return writeRedisInt(deletedCount)
	case "RPUSH", "LPUSH":
		if len(cmd.args) < 2 {
			return wrongArity(cmd.command)
		}
		var length int
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) {
			for _, value := range cmd.args[1:] {
				if cmd.command == "RPUSH" {
					l.Append(value)
				} else {
					l.Prepend(value)
				}
			}
			length = l.Len()
		})
		return writeRedisInt(length)
	case "LLEN":
		if len(cmd.args) != 1 {
			return wrongArity(cmd.command)
		}
		var length int
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) { length = l.Len() })
		return writeRedisInt(length)
	case "LINDEX", "LREMAT":
		if len(cmd.args) != 2 {
			return wrongArity(cmd.command)
		}
		index, err := strconv.Atoi(cmd.args[1])
		if err != nil {
			return writeRedisError(errInvalidIndex)
		}
		var output redisOutput
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) {
			if cmd.command == "LINDEX" {
				output = nodeOutput(l.At(index))
			} else {
				output = nodeOutput(l.RemoveAt(index))
			}
		})
		return output
	case "RPOP", "LPOP":
		if len(cmd.args) != 1 {
			return wrongArity(cmd.command)
		}
		var output redisOutput
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) {
			var node *list.Node[string]
			var err error
			if cmd.command == "RPOP" {
				node, err = l.Pop()
			} else {
				node, err = l.Shift()
			}
			switch {
			case errors.Is(err, list.ErrEmptyList):
				output = writeRedisNil()
			case err != nil:
				output = writeRedisError(err)
			default:
				output = nodeOutput(node)
			}
		})
		return output
	case "LPOS", "LCONTAINS":
		if len(cmd.args) != 2 {
			return wrongArity(cmd.command)
		}
		var output redisOutput
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) {
			if cmd.command == "LCONTAINS" {
				contains := 0
				if l.Contains(cmd.args[1]) {
					contains = 1
				}
				output = writeRedisInt(contains)
				return
			}
			if index, found := l.Find(cmd.args[1]); found {
				output = writeRedisInt(index)
			} else {
				output = writeRedisNil()
			}
		})
		return output
	case "LINSERTAT":
		if len(cmd.args) != 3 {
			return wrongArity(cmd.command)
		}
		index, err := strconv.Atoi(cmd.args[1])
		if err != nil || index < 0 {
			return writeRedisError(errInvalidIndex)
		}
		var length int
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) {
			l.InsertAt(cmd.args[2], index)
			length = l.Len()
		})
		return writeRedisInt(length)
	case "LRANGEALL":
		if len(cmd.args) != 1 {
			return wrongArity(cmd.command)
		}
		var values []string
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) { values = l.Values() })
		return writeRedisArray(values)
	case "LDUMP":
		if len(cmd.args) != 1 {
			return wrongArity(cmd.command)
		}
		var dump string
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) { dump = l.String() })
		return writeRedisBulk(dump)
	case "LCHECK":
		if len(cmd.args) != 1 {
			return wrongArity(cmd.command)
		}
		var err error
		rh.keyspace.With(cmd.args[0], func(l *list.List[string]) { err = l.CheckIntegrity() })
		if err != nil {
			return writeRedisError(err)
		}
		return writeRedisString(RedisOk)
	default:
		return writeRedisError(fmt.Errorf("unknown command '%s'", cmd.command))
	}
}

// RunRedisServer serves the lists of `keyspace` over the Redis protocol until `ctx` is cancelled.
func RunRedisServer(ctx context.Context, keyspace *Keyspace) error {
	if *address == "" {
		return errors.New("expected a non-empty --address flag")
	}

	redisHandler, err := newRedisHandler(keyspace)
	if err != nil {
		return fmt.Errorf("failed to create a new redis handler: %w", err)
	}

	redisServer := redcon.NewServerNetwork("tcp" /*net*/, *address,
		/*handler*/ func(conn redcon.Conn, cmd redcon.Command) {
			// Convert redcon.Command to redisCommand.
			command := redisCommand{command: string(cmd.Args[0]), args: make([]string, len(cmd.Args)-1)}
			for i := 1; i < len(cmd.Args); i++ {
				command.args[i-1] = string(cmd.Args[i])
			}
			output := redisHandler.handle(command)
			output.write(conn)
			if output.closeConnection {
				if err := conn.Close(); err != nil {
					slog.Error("Failed to close connection.", "remote", conn.RemoteAddr(), "error", err)
				}
			}
		},
		/*accept*/ func(conn redcon.Conn) bool {
			slog.Debug("Accepted connection.", "remote", conn.RemoteAddr())
			return true // Accept all connections.
		},
		/*close*/ func(conn redcon.Conn, err error) {
			if err != nil {
				slog.Debug("Connection closed with error.", "remote", conn.RemoteAddr(), "error", err)
			}
		})

	listening := make(chan error, 1)
	serverErrSignal := make(chan error, 1)
	go func() {
		serverErrSignal <- redisServer.ListenServeAndSignal(listening)
		close(serverErrSignal)
	}()
	if err := <-listening; err != nil {
		return fmt.Errorf("failed to listen on %s: %w", *address, err)
	}
	slog.Info("Redis port is listening.", "address", *address)

	select {
	case <-ctx.Done():
		if err := redisServer.Close(); err != nil {
			return fmt.Errorf("failed to close redis server: %w", err)
		}
	case err := <-serverErrSignal:
		if err == nil {
			return errors.New("redis server stopped unexpectedly")
		}
		return fmt.Errorf("redis server stopped unexpectedly: %w", err)
	}

	return nil // Exited with no errors.
}
