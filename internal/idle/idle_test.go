package idle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ioregSample = `+-o IOHIDSystem  <class IOHIDSystem, id 0x100000297, registered, matched, active, busy 0 (0 ms), retain 25>
    {
      "IOClass" = "IOHIDSystem"
      "HIDIdleTime" = 73819291000
      "HIDParameters" = {"HIDClickTime"=500000000}
    }
`

func TestParseIOReg(t *testing.T) {
	d, err := ParseIOReg([]byte(ioregSample))
	require.NoError(t, err)
	assert.Equal(t, 73*time.Second+819291*time.Microsecond, d)

	_, err = ParseIOReg([]byte("nothing here"))
	assert.Error(t, err)
}

func TestParseMillis(t *testing.T) {
	d, err := ParseMillis([]byte("125000\n"))
	require.NoError(t, err)
	assert.Equal(t, 125*time.Second, d)

	d, err = ParseMillis([]byte("-3"))
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = ParseMillis([]byte("soon"))
	assert.Error(t, err)
}

func TestForOS(t *testing.T) {
	darwin, ok := forOS("darwin", "").(Command)
	require.True(t, ok)
	assert.Equal(t, "/usr/sbin/ioreg", darwin.Name)

	linux, ok := forOS("linux", "").(Command)
	require.True(t, ok)
	assert.Equal(t, "xprintidle", linux.Name)

	custom, ok := forOS("linux", "  my-idle --ms ").(Command)
	require.True(t, ok)
	assert.Equal(t, "my-idle", custom.Name)
	assert.Equal(t, []string{"--ms"}, custom.Args)

	_, err := forOS("plan9", "").Idle(context.Background())
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.False(t, Available(forOS("plan9", "")))
}

func TestCommand_MissingProgram(t *testing.T) {
	c := Command{Name: "zedd-no-such-idle-probe", Parse: ParseMillis}
	_, err := c.Idle(context.Background())
	assert.Error(t, err)
	assert.False(t, Available(c))
}
