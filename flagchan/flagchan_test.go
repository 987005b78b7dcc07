package flagchan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompletionTokenReadyAfterBothHalves(t *testing.T) {
	var flag FlagBuffer
	flag.Zero()
	tok := NewCompletionToken("dev0", &flag, 4)

	go func() {
		time.Sleep(2 * time.Millisecond)
		flag.WriteHalf(0, 1)
		flag.WriteHalf(1, 1)
	}()

	result, err := tok.Wait(time.Second)
	require.NoError(t, err)
	require.Equal(t, Ready, result)
}

func TestCompletionTokenTimesOutWhenOnlyOneHalfWritten(t *testing.T) {
	var flag FlagBuffer
	flag.Zero()
	flag.WriteHalf(0, 1)
	tok := NewCompletionToken("dev0", &flag, 4)

	result, err := tok.Wait(5 * time.Millisecond)
	require.Error(t, err)
	require.Equal(t, Timeout, result)
}

func TestCompletionTokenResetRearms(t *testing.T) {
	var flag FlagBuffer
	flag.WriteHalf(0, 1)
	flag.WriteHalf(1, 1)
	tok := NewCompletionToken("dev0", &flag, 4)
	tok.Reset()

	result, err := tok.Wait(5 * time.Millisecond)
	require.Error(t, err)
	require.Equal(t, Timeout, result)
}
