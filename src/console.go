package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Line oriented operator console for talking to the
 *		satellite over its bus.
 *
 * Description:	One command per line:
 *
 *		send CMD [args] [priority=N] [recipient=NODE] [sender=NODE]
 *		setid NODE
 *		list
 *		query CMD
 *		clear
 *		help
 *		exit, quit
 *
 *		Problems with what was typed are reported right here and
 *		nothing goes to the device.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
)

const consoleHelp = `Available commands:

  send CMD [arg ...] [priority=N] [recipient=NODE] [sender=NODE]
        Send a command.  Args are packed little endian into the
        7 byte body: 5, -3, 0x0102, 0b101, PWR, (u16)7, (i8)-1.
        COMM_* commands need recipient=, ALL is broadcast.
  setid NODE      Change the default sender (CDH, PWR, ADCS, PLD).
  list            Show the commands and their arguments.
  query CMD       Show this session's messages for a command.
  clear           Forget the query history.
  help            This text.
  exit, quit      Leave, saving the session log.
`

type Console struct {
	Out      io.Writer
	Prompt   string
	Defaults SendDefaults

	Outbox  *ChunkQueue // serialized messages for the device writer
	Sink    RecordSink  // sent messages are recorded here too
	Session *SessionLog // for query and clear, may be nil
	Logger  *log.Logger
	Metrics *Metrics

	now func() time.Time
}

func NewConsole(out io.Writer, cfg ConsoleConfig, outbox *ChunkQueue, sink RecordSink, session *SessionLog, logger *log.Logger, metrics *Metrics) *Console {
	return &Console{
		Out:      out,
		Prompt:   cfg.Prompt,
		Defaults: SendDefaults{Priority: cfg.Priority, Sender: cfg.Sender},
		Outbox:   outbox,
		Sink:     sink,
		Session:  session,
		Logger:   logger,
		Metrics:  metrics,
		now:      time.Now,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Run
 *
 * Purpose:     Read and execute commands until exit, end of input,
 *		or ctx is done.
 *
 * Description:	Reading is done in its own goroutine because a read
 *		from a terminal can't be interrupted.
 *
 *--------------------------------------------------------------------*/

func (c *Console) Run(ctx context.Context, in io.Reader) error {
	var lines = make(chan string)
	var readErr = make(chan error, 1)

	go func() {
		var scanner = bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(c.Out, c.Prompt)

		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			fmt.Fprintln(c.Out)
			return err
		case line := <-lines:
			if c.Execute(line) {
				return nil
			}
		}
	}
}

// Execute runs one command line.  It returns true to leave the console.
func (c *Console) Execute(line string) bool {
	var verb, rest, _ = strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "":
	case "send":
		c.send(rest)
	case "setid":
		c.setID(rest)
	case "list":
		c.list()
	case "query":
		c.query(rest)
	case "clear":
		c.clear()
	case "help", "?":
		fmt.Fprint(c.Out, consoleHelp)
	case "exit", "quit":
		fmt.Fprintln(c.Out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.Out, "Unknown command %q.  Type help for the list.\n", verb)
	}

	return false
}

func (c *Console) send(args string) {
	var m, err = ParseSend(args, c.Defaults)
	if err != nil {
		c.argumentError(err)
		return
	}

	m.Time = c.now()

	c.Outbox.Put(m.Serialize())
	c.Metrics.MessageSent(m.Cmd)
	c.Logger.Info("Message Sent", "cmd", m.Cmd, "sender", m.Sender, "recipient", m.Recipient, "priority", m.Priority, "body", m.Fields().String())

	fmt.Fprintf(c.Out, "Command: %s\nDestination: %s\n", m.Cmd, m.Recipient.DisplayName())

	if c.Sink != nil {
		c.Sink.Emit(MessageRecord(m))
	}
}

func (c *Console) argumentError(err error) {
	c.Metrics.ArgumentError()

	var ae *ArgumentError
	if errors.As(err, &ae) {
		fmt.Fprintf(c.Out, "Invalid args: %s\n", ae)
		return
	}

	fmt.Fprintf(c.Out, "Error: %s\n", err)
}

func (c *Console) setID(arg string) {
	var n, err = ParseNodeID(arg)
	if err != nil || !n.Valid() {
		c.argumentError(argErrorf(arg, "invalid sender ID"))
		return
	}

	c.Defaults.Sender = n
	fmt.Fprintf(c.Out, "Updated sender ID to %s.\n", n)
}

func (c *Console) list() {
	var tw = tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tCOMMAND\tTO\tARGUMENTS")
	for _, id := range AllCmdIDs {
		var fields []string
		for _, f := range CommandFields(id) {
			fields = append(fields, f.String())
		}
		fmt.Fprintf(tw, "0x%02x\t%s\t%s\t%s\n", byte(id), id, id.Owner(), strings.Join(fields, " "))
	}

	tw.Flush()
}

func (c *Console) query(arg string) {
	var cmd, err = ParseCmdID(arg)
	if err != nil {
		c.argumentError(argErrorf(arg, "unknown command"))
		return
	}

	if c.Session == nil {
		fmt.Fprintln(c.Out, "No session history is being kept.")
		return
	}

	fmt.Fprintf(c.Out, "Searching message history for %s commands...\n", cmd)

	var found = c.Session.Query(cmd)
	for _, r := range found {
		fmt.Fprintf(c.Out, "  %s\n", r.Fields)
	}

	fmt.Fprintf(c.Out, "Found %d results.\n", len(found))
}

func (c *Console) clear() {
	if c.Session == nil {
		return
	}

	var n = c.Session.Clear()
	fmt.Fprintf(c.Out, "Message history cleared, %d messages.\n", n)
}
