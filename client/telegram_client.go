package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tdlib "github.com/zelenin/go-tdlib/client"

	"github.com/crosspost-labs/crosspost/common"
)

// TDLibClient is the subset of the TDLib client surface the poster needs.
// Keeping it narrow lets tests substitute a fake without a running tdlib.
type TDLibClient interface {
	SearchPublicChat(req *tdlib.SearchPublicChatRequest) (*tdlib.Chat, error)
	SendMessage(req *tdlib.SendMessageRequest) (*tdlib.Message, error)
	GetMessageLink(req *tdlib.GetMessageLinkRequest) (*tdlib.MessageLink, error)
	GetMe() (*tdlib.User, error)
	Close() (*tdlib.Ok, error)
}

// TelegramClient posts messages to a Telegram channel through TDLib.
type TelegramClient struct {
	cfg         common.PlatformConfig
	storageRoot string

	td     TDLibClient
	chatID int64

	// connect is swapped out by tests
	connect func(storageRoot string, cfg common.PlatformConfig) (TDLibClient, error)
}

// NewTelegramClient creates a Telegram posting client for the configured channel.
func NewTelegramClient(storageRoot string, cfg common.PlatformConfig) *TelegramClient {
	return &TelegramClient{
		cfg:         cfg,
		storageRoot: storageRoot,
		connect:     connectTDLib,
	}
}

// Connect initializes the TDLib client and resolves the target channel.
func (c *TelegramClient) Connect(ctx context.Context) error {
	if c.td != nil {
		log.Warn().Msg("Telegram client already connected")
		return nil
	}

	td, err := c.connect(c.storageRoot, c.cfg)
	if err != nil {
		return &PlatformError{Platform: common.PlatformTelegram, Message: "failed to initialize TDLib client", Err: err}
	}

	chat, err := td.SearchPublicChat(&tdlib.SearchPublicChatRequest{
		Username: strings.TrimPrefix(c.cfg.ChannelUsername, "@"),
	})
	if err != nil {
		td.Close()
		return &PlatformError{
			Platform: common.PlatformTelegram,
			Message:  fmt.Sprintf("failed to resolve channel %s", c.cfg.ChannelUsername),
			Err:      err,
		}
	}

	c.td = td
	c.chatID = chat.Id
	log.Info().
		Str("channel", c.cfg.ChannelUsername).
		Int64("chat_id", chat.Id).
		Msg("Connected to Telegram channel")
	return nil
}

// Disconnect closes the TDLib client.
func (c *TelegramClient) Disconnect(ctx context.Context) error {
	if c.td == nil {
		return nil
	}
	_, err := c.td.Close()
	c.td = nil
	if err != nil {
		return &PlatformError{Platform: common.PlatformTelegram, Message: "failed to close TDLib client", Err: err}
	}
	return nil
}

// Post sends the content as a text message to the configured channel.
func (c *TelegramClient) Post(ctx context.Context, content PostContent) (*PostResponse, error) {
	if c.td == nil {
		return nil, &PlatformError{Platform: common.PlatformTelegram, Message: "client not connected"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := c.td.SendMessage(&tdlib.SendMessageRequest{
		ChatId: c.chatID,
		InputMessageContent: &tdlib.InputMessageText{
			Text: &tdlib.FormattedText{Text: content.Text},
		},
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	resp := &PostResponse{
		ID: strconv.FormatInt(msg.Id, 10),
		Raw: map[string]interface{}{
			"chat_id":    msg.ChatId,
			"message_id": msg.Id,
		},
	}

	// The permalink is best effort; the post already exists without it.
	link, err := c.td.GetMessageLink(&tdlib.GetMessageLinkRequest{
		ChatId:    msg.ChatId,
		MessageId: msg.Id,
	})
	if err != nil {
		log.Warn().Err(err).Int64("message_id", msg.Id).Msg("Failed to resolve Telegram message link")
		resp.URL = fmt.Sprintf("https://t.me/%s", strings.TrimPrefix(c.cfg.ChannelUsername, "@"))
	} else {
		resp.URL = link.Link
	}

	return resp, nil
}

// HealthProbe checks that the TDLib session is still authorized.
func (c *TelegramClient) HealthProbe(ctx context.Context) Health {
	if c.td == nil {
		return HealthDown
	}
	if _, err := c.td.GetMe(); err != nil {
		log.Warn().Err(err).Msg("Telegram health probe failed")
		return HealthDown
	}
	return HealthOK
}

// Platform implements PlatformClient.
func (c *TelegramClient) Platform() common.PlatformType {
	return common.PlatformTelegram
}

// mapError converts TDLib errors into the client error taxonomy. TDLib
// reports flood control as "Too Many Requests: retry after N".
func (c *TelegramClient) mapError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "Too Many Requests") {
		rle := &RateLimitError{Platform: common.PlatformTelegram, Message: msg}
		if idx := strings.LastIndex(msg, "retry after "); idx >= 0 {
			if secs, convErr := strconv.Atoi(strings.TrimSpace(msg[idx+len("retry after "):])); convErr == nil {
				rle.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return rle
	}
	return &PlatformError{Platform: common.PlatformTelegram, Message: "failed to send message", Err: err}
}

// connectTDLib builds and authorizes a real TDLib client. Credentials come
// from TG_API_ID and TG_API_HASH; the database lives under the storage root
// so sessions survive restarts.
func connectTDLib(storageRoot string, cfg common.PlatformConfig) (TDLibClient, error) {
	apiIDStr := os.Getenv("TG_API_ID")
	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TG_API_ID %q: %w", apiIDStr, err)
	}
	apiHash := os.Getenv("TG_API_HASH")
	if apiHash == "" {
		return nil, fmt.Errorf("TG_API_HASH is not set")
	}

	dbDir := filepath.Join(storageRoot, "state", ".tdlib", "database")
	filesDir := filepath.Join(storageRoot, "state", ".tdlib", "files")
	os.MkdirAll(dbDir, 0755)
	os.MkdirAll(filesDir, 0755)

	log.Info().Str("database_dir", dbDir).Msg("Initializing TDLib client")

	authorizer := tdlib.ClientAuthorizer()
	authorizer.TdlibParameters <- &tdlib.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   dbDir,
		FilesDirectory:      filesDir,
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               int32(apiID),
		ApiHash:             apiHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0.0",
		ApplicationVersion:  "1.0.0",
	}

	go tdlib.CliInteractor(authorizer)

	clientReady := make(chan *tdlib.Client)
	errChan := make(chan error)

	go func() {
		td, err := tdlib.NewClient(authorizer)
		if err != nil {
			errChan <- fmt.Errorf("failed to initialize TDLib client: %w", err)
			return
		}
		td.SetLogVerbosityLevel(&tdlib.SetLogVerbosityLevelRequest{NewVerbosityLevel: 1})
		clientReady <- td
	}()

	select {
	case td := <-clientReady:
		log.Info().Msg("TDLib client initialized successfully")
		return td, nil
	case err := <-errChan:
		return nil, err
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("timeout waiting for TDLib client initialization")
	}
}
