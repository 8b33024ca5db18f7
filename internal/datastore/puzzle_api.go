package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gojek/heimdall/v7"

	"idiomguess/internal/models"
)

// ErrPuzzleAPI covers every way a puzzle call can fail: transport errors,
// non-2xx responses, malformed payloads and application-level error codes.
// Callers only log and apologize; they never distinguish sub-kinds.
var ErrPuzzleAPI = errors.New("puzzle api")

const (
	msgStartGame   = "开始游戏"
	msgGuessPrefix = "我猜 "

	// The API reports a correct guess only through this marker inside the
	// result text. The translation to a boolean happens here and nowhere else.
	successMarker = "正确"
)

type puzzleEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Pic    string `json:"pic"`
		Answer string `json:"answer"`
		Msg    string `json:"msg"`
	} `json:"data"`
}

// PuzzleAPI is a stateless client for the remote idiom-puzzle service. The
// service keeps per-user puzzle state on its side, keyed by the id parameter.
type PuzzleAPI struct {
	baseURL string
	client  heimdall.Doer
}

func NewPuzzleAPI(baseURL string, client heimdall.Doer) *PuzzleAPI {
	return &PuzzleAPI{baseURL: baseURL, client: client}
}

func (api *PuzzleAPI) StartLevel(ctx context.Context, userID int64) (*models.PuzzleLevel, error) {
	envelope, err := api.call(ctx, msgStartGame, userID)
	if err != nil {
		return nil, err
	}

	if envelope.Data.Pic == "" || envelope.Data.Answer == "" {
		return nil, fmt.Errorf("%w: start response missing pic or answer", ErrPuzzleAPI)
	}

	return &models.PuzzleLevel{
		ImageURL: envelope.Data.Pic,
		Answer:   envelope.Data.Answer,
		Hint:     envelope.Data.Msg,
	}, nil
}

func (api *PuzzleAPI) CheckGuess(ctx context.Context, userID int64, guess string) (*models.GuessResult, error) {
	envelope, err := api.call(ctx, msgGuessPrefix+guess, userID)
	if err != nil {
		return nil, err
	}

	return &models.GuessResult{
		Correct:     strings.Contains(envelope.Data.Msg, successMarker),
		Explanation: envelope.Data.Msg,
		Answer:      envelope.Data.Answer,
	}, nil
}

func (api *PuzzleAPI) call(ctx context.Context, msg string, userID int64) (*puzzleEnvelope, error) {
	endpoint, err := url.Parse(api.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPuzzleAPI, err)
	}
	query := endpoint.Query()
	query.Set("msg", msg)
	query.Set("id", strconv.FormatInt(userID, 10))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPuzzleAPI, err)
	}

	resp, err := api.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPuzzleAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrPuzzleAPI, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPuzzleAPI, err)
	}

	var envelope puzzleEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrPuzzleAPI, err)
	}

	if envelope.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: code %d: %s", ErrPuzzleAPI, envelope.Code, envelope.Msg)
	}

	return &envelope, nil
}
