package inbox

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jstz.dev/kernel/tezos"
)

var (
	ticketer = tezos.MustParseAddress("KT1GyeRktoGPEKsWpchWguyy8FAf3aNHkw2T")
	rollup   = tezos.MustParseAddress("KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton")
	receiver = tezos.MustParseAddress("tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q")
)

func buildDeposit(t *testing.T, creator, destination, recv tezos.Address, amount uint64) RawMessage {
	t.Helper()
	var body []byte
	body = append(body, tagDeposit)
	body = append(body, creator.Bytes22()...)
	body = append(body, destination.Bytes22()...)
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], amount)
	body = append(body, amt[:]...)
	body = append(body, recv.Bytes22()...)
	return RawMessage{Kind: FrameInternal, Payload: body}
}

func TestParseDepositAccepted(t *testing.T) {
	raw := buildDeposit(t, ticketer, rollup, receiver, 1000)
	msg, err := Parse(raw, ticketer, rollup)
	require.NoError(t, err)
	require.NotNil(t, msg.Deposit)
	assert.Equal(t, uint64(1000), msg.Deposit.Amount)
	assert.True(t, msg.Deposit.Receiver.Equal(receiver))
}

func TestParseDepositWrongTicketerDropped(t *testing.T) {
	other := tezos.MustParseAddress("KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton")
	raw := buildDeposit(t, other, rollup, receiver, 1000)
	msg, err := Parse(raw, ticketer, rollup)
	require.NoError(t, err)
	assert.Equal(t, Message{}, msg)
}

func TestParseLevelInfo(t *testing.T) {
	raw := RawMessage{Kind: FrameInternal, Payload: []byte{tagLevelStart}}
	msg, err := Parse(raw, ticketer, rollup)
	require.NoError(t, err)
	require.NotNil(t, msg.LevelInfo)
	assert.Equal(t, "start", msg.LevelInfo.Kind)
}

func TestParseExternalSignedOperation(t *testing.T) {
	payload := []byte(`{
		"public_key": "edpkv45regue1bWtuHnCgLU8xWKLwa9qRqv4gimgJKro4LSc3C5VjV",
		"signature": "edsigtzWvLTwvEqaZy1BMzQoeFTCxALJ94aDx5YyDh6qhYNQowHfAb7k23doKazVMGvGnT6bCeTG9qbJfBqRqeL64zpEFLJyp9C",
		"inner": {
			"source": "tz1LggX2HUdvJ1tF4Fvv8fjsrzLeW4Jr9t2Q",
			"nonce": 0,
			"content": { "RunFunction": {"uri": "jstz://KT1abc/", "method": "GET", "headers": {}, "body": null, "gas_limit": 1000} }
		}
	}`)
	raw := RawMessage{Kind: FrameExternal, Payload: payload}
	msg, err := Parse(raw, ticketer, rollup)
	require.NoError(t, err)
	require.NotNil(t, msg.External)
	assert.Equal(t, uint64(0), msg.External.Inner.Nonce)
}

func TestParseExternalMalformedErrors(t *testing.T) {
	raw := RawMessage{Kind: FrameExternal, Payload: []byte("not json")}
	_, err := Parse(raw, ticketer, rollup)
	assert.Error(t, err)
}
