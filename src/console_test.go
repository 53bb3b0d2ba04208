package soti

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type consoleHarness struct {
	console *Console
	out     *bytes.Buffer
	outbox  *ChunkQueue
	session *SessionLog
}

func newTestConsole() *consoleHarness {
	var h = &consoleHarness{
		out:     &bytes.Buffer{},
		outbox:  NewChunkQueue(),
		session: newSessionLogAt("none", func() time.Time { return testTime }),
	}

	h.console = NewConsole(h.out, DefaultConfig().Console, h.outbox, h.session, h.session, discardLogger(), nil)
	h.console.now = func() time.Time { return testTime }

	return h
}

func Test_Console_Send(t *testing.T) {
	var h = newTestConsole()

	assert.False(t, h.console.Execute("send PWR_SET_SUBSYSTEM_POWER PWR 1"))
	assert.Equal(t, "Command: PWR_SET_SUBSYSTEM_POWER\nDestination: Power\n", h.out.String())

	var msg, ok = h.outbox.TryGet()
	require.True(t, ok)
	assert.Equal(t, []byte{0x04, 0x00, 0x01, 0x17, 0x01, 0x01, 0, 0, 0, 0, 0}, msg)

	require.Equal(t, 1, h.session.Len())
	var found = h.session.Query(PWR_SET_SUBSYSTEM_POWER)
	require.Len(t, found, 1)
	assert.Equal(t, SourceUser, found[0].Source)
	assert.Equal(t, testTime, found[0].Time)
}

func Test_Console_BadArgs(t *testing.T) {
	var h = newTestConsole()

	h.console.Execute("send CDH_SET_RTC (u8)256")
	assert.True(t, strings.HasPrefix(h.out.String(), "Invalid args: "), h.out.String())

	h.out.Reset()
	h.console.Execute("send")
	assert.Contains(t, h.out.String(), "Invalid args: missing command")

	assert.Zero(t, h.outbox.Len())
	assert.Zero(t, h.session.Len())
}

func Test_Console_SetID(t *testing.T) {
	var h = newTestConsole()

	h.console.Execute("setid adcs")
	assert.Equal(t, "Updated sender ID to ADCS.\n", h.out.String())

	h.console.Execute("send CDH_GET_RTC")
	var msg, _ = h.outbox.TryGet()
	assert.Equal(t, byte(NodeADCS), msg[1])

	h.out.Reset()
	h.console.Execute("setid ALL")
	assert.Contains(t, h.out.String(), "Invalid args")
	assert.Equal(t, NodeADCS, h.console.Defaults.Sender)
}

func Test_Console_QueryClear(t *testing.T) {
	var h = newTestConsole()

	h.console.Execute("send CDH_GET_RTC")
	h.console.Execute("send CDH_GET_RTC priority=1")
	h.console.Execute("send PLD_TEST_LEDS")

	h.out.Reset()
	h.console.Execute("query cdh_get_rtc")

	var lines = strings.Split(strings.TrimSpace(h.out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Searching message history for CDH_GET_RTC commands...", lines[0])
	assert.Contains(t, lines[1], "cmd: CDH_GET_RTC")
	assert.Equal(t, "Found 2 results.", lines[3])

	h.out.Reset()
	h.console.Execute("clear")
	assert.Equal(t, "Message history cleared, 3 messages.\n", h.out.String())

	h.out.Reset()
	h.console.Execute("query CDH_GET_RTC")
	assert.Contains(t, h.out.String(), "Found 0 results.")

	h.out.Reset()
	h.console.Execute("query NOPE")
	assert.Contains(t, h.out.String(), "Invalid args")
}

func Test_Console_Misc(t *testing.T) {
	var h = newTestConsole()

	h.console.Execute("list")
	assert.Contains(t, h.out.String(), "PWR_SET_SUBSYSTEM_POWER")
	assert.Contains(t, h.out.String(), "ARGUMENTS")

	h.out.Reset()
	h.console.Execute("help")
	assert.Equal(t, consoleHelp, h.out.String())

	h.out.Reset()
	assert.False(t, h.console.Execute("launch"))
	assert.Contains(t, h.out.String(), `Unknown command "launch"`)

	assert.False(t, h.console.Execute("   "))
	assert.True(t, h.console.Execute("quit"))
	assert.True(t, h.console.Execute("EXIT"))
}

func Test_Console_Run(t *testing.T) {
	var h = newTestConsole()
	h.console.Prompt = "> "

	var err = h.console.Run(context.Background(), strings.NewReader("send CDH_GET_RTC\nexit\nsend CDH_GET_RTC\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, h.outbox.Len())
	assert.True(t, strings.HasSuffix(h.out.String(), "Exiting...\n"))

	// End of input leaves too.
	h = newTestConsole()
	require.NoError(t, h.console.Run(context.Background(), strings.NewReader("send CDH_GET_RTC\n")))
	assert.Equal(t, 1, h.outbox.Len())
}
