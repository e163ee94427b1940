package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/mindbehind/converse-go/internal/dto"
	"github.com/mindbehind/converse-go/internal/models"
	"github.com/mindbehind/converse-go/internal/transport"
)

// pngBytes returns a minimal blob that sniffs as image/png.
func pngBytes() []byte {
	header := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	return append(header, make([]byte, 64)...)
}

func newTestPipeline(stub *stubTransport, maxSizeMB int) *UploadPipeline {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewUploadPipeline(stub, maxSizeMB, validate, nil, testLogger())
}

func TestConcurrentFirstSendsCreateOneConversation(t *testing.T) {
	stub := newStubTransport()
	pipeline := newTestPipeline(stub, 25)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := dto.NewSendMessageRequest(models.NewTextMessage("hi"))
			_, err := pipeline.Send(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, 1, stub.createCalls)
	require.Len(t, stub.sent, 8)
	require.Equal(t, "c1", pipeline.ConversationID())
}

func TestSeededConversationSkipsCreation(t *testing.T) {
	stub := newStubTransport()
	pipeline := newTestPipeline(stub, 25)
	pipeline.SetConversationID("existing")

	req := dto.NewSendMessageRequest(models.NewTextMessage("hi"))
	_, err := pipeline.Send(context.Background(), req)
	require.NoError(t, err)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, 0, stub.createCalls)
}

func TestSendValidatesRequest(t *testing.T) {
	stub := newStubTransport()
	pipeline := newTestPipeline(stub, 25)

	// Text message with no text, payload, or coordinates.
	req := dto.SendMessageRequest{Type: models.MessageTypeText, Role: models.RoleAppUser}
	_, err := pipeline.Send(context.Background(), req)
	require.Error(t, err)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Empty(t, stub.sent)
}

func TestSendMediaRejectsOversizedBlob(t *testing.T) {
	stub := newStubTransport()
	pipeline := newTestPipeline(stub, 1)

	blob := bytes.NewReader(make([]byte, 1024*1024+1))
	media := transport.Media{Name: "big.bin", Kind: transport.MediaKindFile, Reader: blob, Size: -1}
	_, err := pipeline.SendMedia(context.Background(), media, nil)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestSendMediaRejectsNonImageForImageKind(t *testing.T) {
	stub := newStubTransport()
	pipeline := newTestPipeline(stub, 25)

	media := transport.Media{Name: "note.txt", Kind: transport.MediaKindImage, Reader: bytes.NewReader([]byte("plain text")), Size: -1}
	_, err := pipeline.SendMedia(context.Background(), media, nil)
	require.ErrorIs(t, err, ErrMediaNotImage)

	// The same bytes are fine as a plain file.
	stub.uploadFn = func(ctx context.Context, m transport.Media, progress transport.ProgressFunc) (dto.MessagePayload, error) {
		return dto.MessagePayload{ID: "srv-file", Type: models.MessageTypeFile, Role: models.RoleAppUser}, nil
	}
	media = transport.Media{Name: "note.txt", Kind: transport.MediaKindFile, Reader: bytes.NewReader([]byte("plain text")), Size: -1}
	_, err = pipeline.SendMedia(context.Background(), media, nil)
	require.NoError(t, err)
}

func TestSendMediaProgressIsMonotonicAndClamped(t *testing.T) {
	stub := newStubTransport()
	stub.uploadFn = func(ctx context.Context, media transport.Media, progress transport.ProgressFunc) (dto.MessagePayload, error) {
		progress(0.5)
		progress(0.3)
		progress(0.8)
		progress(1.7)
		return dto.MessagePayload{ID: "srv-img", Type: models.MessageTypeImage, Role: models.RoleAppUser}, nil
	}
	pipeline := newTestPipeline(stub, 25)

	var seen []float64
	media := transport.Media{Name: "photo.png", Kind: transport.MediaKindImage, Reader: bytes.NewReader(pngBytes()), Size: -1}
	_, err := pipeline.SendMedia(context.Background(), media, func(progress float64) {
		seen = append(seen, progress)
	})
	require.NoError(t, err)

	// Regressions are swallowed, overshoot is clamped, and the terminal 1.0
	// arrives before SendMedia returns.
	require.Equal(t, []float64{0.5, 0.8, 1.0}, seen)
}

func TestSendMediaReportsTerminalProgressWithoutByteProgress(t *testing.T) {
	stub := newStubTransport()
	stub.uploadFn = func(ctx context.Context, media transport.Media, progress transport.ProgressFunc) (dto.MessagePayload, error) {
		return dto.MessagePayload{ID: "srv-img", Type: models.MessageTypeImage, Role: models.RoleAppUser}, nil
	}
	pipeline := newTestPipeline(stub, 25)

	var seen []float64
	media := transport.Media{Name: "photo.png", Kind: transport.MediaKindImage, Reader: bytes.NewReader(pngBytes()), Size: -1}
	_, err := pipeline.SendMedia(context.Background(), media, func(progress float64) {
		seen = append(seen, progress)
	})
	require.NoError(t, err)
	require.Equal(t, []float64{1.0}, seen)
}

func TestSendMediaFailureSkipsTerminalProgress(t *testing.T) {
	stub := newStubTransport()
	stub.uploadFn = func(ctx context.Context, media transport.Media, progress transport.ProgressFunc) (dto.MessagePayload, error) {
		progress(0.4)
		return dto.MessagePayload{}, &transport.APIError{Kind: transport.KindConnectivity, Description: "reset"}
	}
	pipeline := newTestPipeline(stub, 25)

	var seen []float64
	media := transport.Media{Name: "photo.png", Kind: transport.MediaKindImage, Reader: bytes.NewReader(pngBytes()), Size: -1}
	_, err := pipeline.SendMedia(context.Background(), media, func(progress float64) {
		seen = append(seen, progress)
	})
	require.Error(t, err)
	require.Equal(t, []float64{0.4}, seen)
}

func TestPostbackDeduplicatesWhileInFlight(t *testing.T) {
	stub := newStubTransport()
	gate := make(chan struct{})
	stub.postbackGate = gate
	pipeline := newTestPipeline(stub, 25)
	pipeline.SetConversationID("c1")

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- pipeline.Postback(context.Background(), "action-1", "payload")
	}()

	// Wait until the first postback is registered as in flight.
	require.Eventually(t, func() bool {
		pipeline.mu.Lock()
		defer pipeline.mu.Unlock()
		_, inFlight := pipeline.postbacksInFlight["action-1"]
		return inFlight
	}, time.Second, time.Millisecond)

	// A second press while the first is pending is a silent no-op.
	require.NoError(t, pipeline.Postback(context.Background(), "action-1", "payload"))

	close(gate)
	require.NoError(t, <-firstDone)

	stub.mu.Lock()
	delivered := len(stub.postbacks)
	stub.mu.Unlock()
	require.Equal(t, 1, delivered)

	// Once resolved the action can be posted again.
	stub.mu.Lock()
	stub.postbackGate = nil
	stub.mu.Unlock()
	require.NoError(t, pipeline.Postback(context.Background(), "action-1", "payload"))
	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.postbacks, 2)
}

func TestPostbackRequiresActionID(t *testing.T) {
	stub := newStubTransport()
	pipeline := newTestPipeline(stub, 25)
	pipeline.SetConversationID("c1")

	require.Error(t, pipeline.Postback(context.Background(), "", "payload"))
	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Empty(t, stub.postbacks)
}
