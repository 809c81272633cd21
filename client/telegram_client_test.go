package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tdlib "github.com/zelenin/go-tdlib/client"

	"github.com/crosspost-labs/crosspost/common"
)

// fakeTdlibClient implements TDLibClient with overridable behavior per test.
type fakeTdlibClient struct {
	searchPublicChatFunc func(req *tdlib.SearchPublicChatRequest) (*tdlib.Chat, error)
	sendMessageFunc      func(req *tdlib.SendMessageRequest) (*tdlib.Message, error)
	getMessageLinkFunc   func(req *tdlib.GetMessageLinkRequest) (*tdlib.MessageLink, error)
	getMeFunc            func() (*tdlib.User, error)
	closeCalls           int
}

func (f *fakeTdlibClient) SearchPublicChat(req *tdlib.SearchPublicChatRequest) (*tdlib.Chat, error) {
	if f.searchPublicChatFunc != nil {
		return f.searchPublicChatFunc(req)
	}
	return &tdlib.Chat{Id: 1000}, nil
}

func (f *fakeTdlibClient) SendMessage(req *tdlib.SendMessageRequest) (*tdlib.Message, error) {
	return f.sendMessageFunc(req)
}

func (f *fakeTdlibClient) GetMessageLink(req *tdlib.GetMessageLinkRequest) (*tdlib.MessageLink, error) {
	if f.getMessageLinkFunc != nil {
		return f.getMessageLinkFunc(req)
	}
	return &tdlib.MessageLink{Link: "https://t.me/testchannel/42"}, nil
}

func (f *fakeTdlibClient) GetMe() (*tdlib.User, error) {
	if f.getMeFunc != nil {
		return f.getMeFunc()
	}
	return &tdlib.User{Id: 7}, nil
}

func (f *fakeTdlibClient) Close() (*tdlib.Ok, error) {
	f.closeCalls++
	return &tdlib.Ok{}, nil
}

func newConnectedTelegramClient(t *testing.T, fake *fakeTdlibClient) *TelegramClient {
	t.Helper()

	c := NewTelegramClient(t.TempDir(), common.PlatformConfig{ChannelUsername: "@testchannel"})
	c.connect = func(storageRoot string, cfg common.PlatformConfig) (TDLibClient, error) {
		return fake, nil
	}
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestTelegramClientConnectResolvesChannel(t *testing.T) {
	fake := &fakeTdlibClient{
		searchPublicChatFunc: func(req *tdlib.SearchPublicChatRequest) (*tdlib.Chat, error) {
			assert.Equal(t, "testchannel", req.Username, "leading @ is stripped")
			return &tdlib.Chat{Id: 4242}, nil
		},
	}

	c := newConnectedTelegramClient(t, fake)
	assert.Equal(t, int64(4242), c.chatID)
}

func TestTelegramClientConnectUnknownChannel(t *testing.T) {
	fake := &fakeTdlibClient{
		searchPublicChatFunc: func(req *tdlib.SearchPublicChatRequest) (*tdlib.Chat, error) {
			return nil, errors.New("USERNAME_NOT_OCCUPIED")
		},
	}

	c := NewTelegramClient(t.TempDir(), common.PlatformConfig{ChannelUsername: "@missing"})
	c.connect = func(storageRoot string, cfg common.PlatformConfig) (TDLibClient, error) {
		return fake, nil
	}

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fake.closeCalls, "failed connect releases the tdlib client")
}

func TestTelegramClientPost(t *testing.T) {
	fake := &fakeTdlibClient{
		sendMessageFunc: func(req *tdlib.SendMessageRequest) (*tdlib.Message, error) {
			text := req.InputMessageContent.(*tdlib.InputMessageText)
			assert.Equal(t, "release is live", text.Text.Text)
			return &tdlib.Message{Id: 42, ChatId: req.ChatId}, nil
		},
	}

	c := newConnectedTelegramClient(t, fake)

	resp, err := c.Post(context.Background(), PostContent{Text: "release is live"})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.ID)
	assert.Equal(t, "https://t.me/testchannel/42", resp.URL)
}

func TestTelegramClientPostLinkFallback(t *testing.T) {
	fake := &fakeTdlibClient{
		sendMessageFunc: func(req *tdlib.SendMessageRequest) (*tdlib.Message, error) {
			return &tdlib.Message{Id: 42, ChatId: req.ChatId}, nil
		},
		getMessageLinkFunc: func(req *tdlib.GetMessageLinkRequest) (*tdlib.MessageLink, error) {
			return nil, errors.New("message not found")
		},
	}

	c := newConnectedTelegramClient(t, fake)

	resp, err := c.Post(context.Background(), PostContent{Text: "release is live"})
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/testchannel", resp.URL)
}

func TestTelegramClientFloodControl(t *testing.T) {
	fake := &fakeTdlibClient{
		sendMessageFunc: func(req *tdlib.SendMessageRequest) (*tdlib.Message, error) {
			return nil, errors.New("Too Many Requests: retry after 17")
		},
	}

	c := newConnectedTelegramClient(t, fake)

	_, err := c.Post(context.Background(), PostContent{Text: "release is live"})
	require.Error(t, err)
	require.True(t, IsRateLimit(err))

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 17*time.Second, rle.RetryAfter)
}

func TestTelegramClientPlatformError(t *testing.T) {
	fake := &fakeTdlibClient{
		sendMessageFunc: func(req *tdlib.SendMessageRequest) (*tdlib.Message, error) {
			return nil, errors.New("CHAT_WRITE_FORBIDDEN")
		},
	}

	c := newConnectedTelegramClient(t, fake)

	_, err := c.Post(context.Background(), PostContent{Text: "release is live"})
	require.Error(t, err)
	assert.False(t, IsRateLimit(err))

	var perr *PlatformError
	assert.ErrorAs(t, err, &perr)
}

func TestTelegramClientPostNotConnected(t *testing.T) {
	c := NewTelegramClient(t.TempDir(), common.PlatformConfig{ChannelUsername: "@testchannel"})

	_, err := c.Post(context.Background(), PostContent{Text: "release is live"})
	require.Error(t, err)

	var perr *PlatformError
	assert.ErrorAs(t, err, &perr)
}

func TestTelegramClientHealthProbe(t *testing.T) {
	fake := &fakeTdlibClient{}
	c := newConnectedTelegramClient(t, fake)
	assert.Equal(t, HealthOK, c.HealthProbe(context.Background()))

	fake.getMeFunc = func() (*tdlib.User, error) { return nil, errors.New("unauthorized") }
	assert.Equal(t, HealthDown, c.HealthProbe(context.Background()))

	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, HealthDown, c.HealthProbe(context.Background()))
}
