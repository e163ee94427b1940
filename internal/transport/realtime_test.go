package transport

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageFrame(t *testing.T) {
	ch := &WebsocketChannel{logger: zerolog.Nop()}

	envelope, ok := ch.decode([]byte(`{"event":"message","message":{"_id":"m1","text":"hi","type":"text","role":"appMaker"}}`))
	require.True(t, ok)
	require.Equal(t, EnvelopeMessage, envelope.Type)
	require.Equal(t, "m1", envelope.Message.ID)
	require.Equal(t, "hi", envelope.Message.Text)
	require.Equal(t, "appMaker", envelope.Message.Role)
}

func TestDecodeActivityFrame(t *testing.T) {
	ch := &WebsocketChannel{logger: zerolog.Nop()}

	envelope, ok := ch.decode([]byte(`{"event":"activity","activity":{"type":"typing:start","role":"appMaker","data":{"name":"Kate"}}}`))
	require.True(t, ok)
	require.Equal(t, EnvelopeActivity, envelope.Type)
	require.Equal(t, "typing:start", envelope.Activity.Type)
	require.Equal(t, "Kate", envelope.Activity.Data["name"])
}

func TestDecodeDropsUnusableFrames(t *testing.T) {
	ch := &WebsocketChannel{logger: zerolog.Nop()}

	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `not json at all`},
		{"unknown event", `{"event":"presence","user":"u1"}`},
		{"message body wrong shape", `{"event":"message","message":"nope"}`},
		{"message body missing", `{"event":"message"}`},
		{"activity body wrong shape", `{"event":"activity","activity":42}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := ch.decode([]byte(tc.raw))
			require.False(t, ok)
		})
	}
}
