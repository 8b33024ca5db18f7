package models

// PuzzleLevel is the remote API's payload for a freshly started level.
type PuzzleLevel struct {
	ImageURL string `json:"pic"`
	Answer   string `json:"answer"`
	Hint     string `json:"msg"`
}

// GuessResult is the remote API's verdict on a submitted guess. Correct is
// derived once at the client boundary; nothing downstream inspects the
// explanation text for success markers.
type GuessResult struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
	Answer      string `json:"answer"`
}
