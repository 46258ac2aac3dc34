package content

import (
	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/bizscrape/grant-pipeline/internal/observability"
)

// recoverEncoding re-decodes suspect bytes under alternate character-set
// hypotheses and keeps the first result that clears the script-ratio gate.
// Scraped Korean attachments are frequently EUC-KR served as UTF-8, which
// shows up as a high unrelated-script ratio downstream.
func recoverEncoding(raw []byte) (string, bool) {
	for _, enc := range encodingHypotheses(raw) {
		decoded, err := decode(raw, enc)
		if err != nil {
			continue
		}

		if validateText(decoded) == nil {
			observability.EncodingRecoveries.WithLabelValues("recovered").Inc()

			return decoded, true
		}
	}

	observability.EncodingRecoveries.WithLabelValues("failed").Inc()

	return "", false
}

// encodingHypotheses orders candidate encodings: the detector's best guess
// first, then the fixed Korean-document suspects.
func encodingHypotheses(raw []byte) []encoding.Encoding {
	hypotheses := make([]encoding.Encoding, 0, 4)

	detector := chardet.NewTextDetector()
	if result, err := detector.DetectBest(raw); err == nil {
		if enc := encodingByName(result.Charset); enc != nil {
			hypotheses = append(hypotheses, enc)
		}
	}

	return append(hypotheses,
		korean.EUCKR,
		unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
		japanese.ShiftJIS,
	)
}

func encodingByName(name string) encoding.Encoding {
	switch name {
	case "EUC-KR":
		return korean.EUCKR
	case "UTF-16LE":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "UTF-16BE":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "Shift_JIS":
		return japanese.ShiftJIS
	default:
		return nil
	}
}

func decode(raw []byte, enc encoding.Encoding) (string, error) {
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}
