package storage

import (
	"testing"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "소상공인 지원", SanitizeUTF8("소상공인 지원"))
	assert.Empty(t, SanitizeUTF8(""))

	broken := "공고" + string([]byte{0xff, 0xfe}) + "문"
	cleaned := SanitizeUTF8(broken)

	assert.True(t, utf8.ValidString(cleaned))
	assert.Equal(t, "공고문", cleaned)
}

func TestTextRoundTrip(t *testing.T) {
	assert.Equal(t, "지원사업", fromText(toText("지원사업")))
	assert.False(t, toText("").Valid, "empty strings map to NULL")
	assert.Empty(t, fromText(pgtype.Text{}))
}
