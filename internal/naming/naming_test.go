package naming

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var sanitizeInputs = []string{
	"",
	"My//Game??",
	"The Legend of Zelda: Tears of the Kingdom",
	`a<b>c:d"e/f\g|h?i*j`,
	"trailing dots...",
	"trailing spaces   ",
	"mixed . . ",
	"___",
	"a_?_b",
	"?",
	". .",
	"ポケットモンスター／スカーレット",
	"Mario Kart 8 Deluxe",
	"**",
	"x_",
}

func TestSanitize_Examples(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "unknown_game"},
		{"My//Game??", "My_Game_"},
		{"The Legend of Zelda: Tears of the Kingdom", "The Legend of Zelda_ Tears of the Kingdom"},
		{"trailing dots...", "trailing dots"},
		{"trailing spaces   ", "trailing spaces"},
		{"___", "_"},
		{"a_?_b", "a_b"},
		{"?", "_"},
		{". .", "unknown_game"},
		{"Mario Kart 8 Deluxe", "Mario Kart 8 Deluxe"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Sanitize(c.in), "Sanitize(%q)", c.in)
	}
}

func TestSanitize_Properties(t *testing.T) {
	for _, in := range sanitizeInputs {
		out := Sanitize(in)
		assert.Equal(t, out, Sanitize(out), "not idempotent for %q", in)
		assert.NotEmpty(t, out)
		assert.False(t, strings.ContainsAny(out, `<>:"/\|?*`), "forbidden char in %q", out)
		assert.False(t, strings.HasSuffix(out, " ") || strings.HasSuffix(out, "."), "bad suffix in %q", out)
		assert.NotContains(t, out, "__")
	}
}

func TestSanitize_MultibyteUntouched(t *testing.T) {
	assert.Equal(t, "ポケットモンスター／スカーレット", Sanitize("ポケットモンスター／スカーレット"))
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "0100F2C0115B6000", FolderName(0x0100F2C0115B6000, ""))
	assert.Equal(t, "Zelda_ TOTK", FolderName(0x0100F2C0115B6000, "Zelda: TOTK"))
}

func TestArchiveFileName(t *testing.T) {
	ts := time.Date(2026, 3, 7, 9, 5, 1, 0, time.UTC)
	assert.Equal(t, "0100000000001000_20260307_090501.zip", ArchiveFileName(0x0100000000001000, ts))
	assert.Equal(t, "00000000000000AB", HexID(0xAB))
}

func TestUserFolderName(t *testing.T) {
	assert.Equal(t, "Unknown", UserFolderName(""))
	assert.Equal(t, "Link", UserFolderName("Link"))
	assert.Equal(t, "a_b", UserFolderName("a/b"))
}
