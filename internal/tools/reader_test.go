package tools

import (
	"strings"
	"testing"

	"github.com/kanon0/llmchat/internal/log"
	"github.com/kanon0/llmchat/internal/security"
)

func TestReadRejectsInternalURL(t *testing.T) {
	h := &readerHandler{fetcher: security.NewFetcher(log.NewNop())}

	res, err := h.read(ReadInput{URL: "http://169.254.169.254/latest/meta-data/"})
	if err != nil {
		t.Fatalf("read() error = %v", err)
	}
	if res.Status != StatusError || res.Error.Code != ErrCodeSecurity {
		t.Errorf("read() = %+v, want security error", res)
	}
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("字", 20)
	got := truncateRunes(long, 10)
	if want := strings.Repeat("字", 10) + "…"; got != want {
		t.Errorf("truncateRunes() = %q, want %q", got, want)
	}

	short := "fits"
	if got := truncateRunes(short, 10); got != short {
		t.Errorf("truncateRunes() = %q, want unchanged", got)
	}
}
