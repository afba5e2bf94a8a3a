package redaction

import (
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

var sampleTexts = []string{
	"",
	"Sampah menumpuk di dekat pasar sejak tiga hari",
	"Lampu penerangan mati total, ada 3 lubang besar",
	"Pelaku dengan NIK 3201234567890123 terlihat di sana",
	"Hubungi saya di 081234567890 atau ahmad@email.com",
	"NIK: 3201234567890123, Phone: +6281234567890, Email: john@test.com, Jl. Sudirman No. 123",
	"Rumah di Gg. Mawar 5 sering kebanjiran, telp 0812-3456-7890",
	"Jl. Merdeka 081234567890",
	"kirim ke a.b@c.id dan x@y.org",
	"nomor rekening 1234567890 tidak dikenal",
	"rekening 1111111111111111081234567890 tolong",
	"rumah di Gang Mawar",
	"tinggal di Rt 05",
}

func categories(items []domain.DetectedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Category)
	}
	return out
}

func TestScrubLeavesCleanTextUntouched(t *testing.T) {
	r := NewDefault()
	for _, text := range []string{
		"Sampah menumpuk di dekat pasar sejak tiga hari",
		"Lampu penerangan mati total, ada 3 lubang besar",
		"Got rusak dan bau",
	} {
		res := r.Scrub(text)
		require.Equal(t, text, res.ScrubbedText)
		require.Empty(t, res.DetectedItems)
		require.Equal(t, domain.ConfidenceLow, res.Confidence)
	}
}

func TestScrubEmptyInput(t *testing.T) {
	res := NewDefault().Scrub("")
	require.Equal(t, "", res.ScrubbedText)
	require.NotNil(t, res.DetectedItems)
	require.Empty(t, res.DetectedItems)
	require.Equal(t, domain.ConfidenceLow, res.Confidence)
}

func TestScrubSingleNIK(t *testing.T) {
	res := NewDefault().Scrub("Pelaku dengan NIK 3201234567890123 terlihat di sana")

	require.Equal(t, "Pelaku dengan NIK [NIK-REDACTED] terlihat di sana", res.ScrubbedText)
	require.Len(t, res.DetectedItems, 1)
	require.Equal(t, CategoryNIK, res.DetectedItems[0].Category)
	require.Equal(t, "3201***", res.DetectedItems[0].Preview)
	require.Equal(t, domain.ConfidenceMedium, res.Confidence)
}

func TestScrubPhoneAndEmail(t *testing.T) {
	res := NewDefault().Scrub("Hubungi saya di 081234567890 atau ahmad@email.com")

	require.Equal(t, []string{CategoryPhone, CategoryEmail}, categories(res.DetectedItems))
	require.NotContains(t, res.ScrubbedText, "081234567890")
	require.NotContains(t, res.ScrubbedText, "ahmad@email.com")
	require.Equal(t, "Hubungi saya di [PHONE-REDACTED] atau [EMAIL-REDACTED]", res.ScrubbedText)
	require.Equal(t, "0812***", res.DetectedItems[0].Preview)
	require.Equal(t, "ah***@email.com", res.DetectedItems[1].Preview)
	require.Equal(t, domain.ConfidenceMedium, res.Confidence)
}

func TestScrubAllCategories(t *testing.T) {
	res := NewDefault().Scrub("NIK: 3201234567890123, Phone: +6281234567890, Email: john@test.com, Jl. Sudirman No. 123")

	require.Equal(t, []string{CategoryNIK, CategoryPhone, CategoryEmail, CategoryAddress}, categories(res.DetectedItems))
	require.Equal(t, domain.ConfidenceHigh, res.Confidence)
	require.Equal(t, "NIK: [NIK-REDACTED], Phone: [PHONE-REDACTED], Email: [EMAIL-REDACTED], [ADDRESS-REDACTED]", res.ScrubbedText)
	require.Equal(t, "Jl. Sudirm...", res.DetectedItems[3].Preview)
}

func TestScrubPreviewNeverHoldsFullValue(t *testing.T) {
	text := "NIK: 3201234567890123, Phone: +6281234567890, Email: john@test.com, Jl. Sudirman No. 123"
	res := NewDefault().Scrub(text)
	for _, raw := range []string{"3201234567890123", "+6281234567890", "john@test.com", "Jl. Sudirman No. 123"} {
		for _, item := range res.DetectedItems {
			require.NotEqual(t, raw, item.Preview)
			require.NotContains(t, item.Preview, raw)
		}
	}

	short := NewDefault().Scrub("lapor dari Rt 05")
	require.Len(t, short.DetectedItems, 1)
	require.NotContains(t, short.DetectedItems[0].Preview, "Rt 05")
}

func TestScrubShortAddressPreviewIsMasked(t *testing.T) {
	r := NewDefault()
	for text, raw := range map[string]string{
		"rumah di Gang Mawar": "Gang Mawar",
		"tinggal di Rt 05":    "Rt 05",
	} {
		res := r.Scrub(text)
		require.Equal(t, []string{CategoryAddress}, categories(res.DetectedItems), "text %q", text)
		require.NotContains(t, res.DetectedItems[0].Preview, raw)
		require.True(t, strings.HasSuffix(res.DetectedItems[0].Preview, "..."))
	}
}

func TestKeepPrefixNeverKeepsMoreThanHalf(t *testing.T) {
	mask := KeepPrefix(10, "...")
	require.Equal(t, "Rt...", mask("Rt 05"))
	require.Equal(t, "...", mask("x"))
	require.Equal(t, "Jl. Sudirm...", mask("Jl. Sudirman No. 123"))
	require.Equal(t, "***@y.org", MaskEmail("x@y.org"))
}

func TestScrubCatchesNIKExposedByPhoneReplacement(t *testing.T) {
	res := NewDefault().Scrub("rekening 1111111111111111081234567890 tolong")

	require.Equal(t, "rekening [NIK-REDACTED][PHONE-REDACTED] tolong", res.ScrubbedText)
	require.Equal(t, []string{CategoryPhone, CategoryNIK}, categories(res.DetectedItems))
	require.NotContains(t, res.ScrubbedText, "1111111111111111")
}

func TestScrubOverlapResolvedByCategoryOrder(t *testing.T) {
	res := NewDefault().Scrub("Jl. Merdeka 081234567890")

	// The phone number inside the address is claimed by the phone rule first.
	require.Equal(t, []string{CategoryPhone, CategoryAddress}, categories(res.DetectedItems))
	require.Equal(t, "[ADDRESS-REDACTED][PHONE-REDACTED]", res.ScrubbedText)
}

func TestScrubNIKIsNotReclassifiedAsPhone(t *testing.T) {
	res := NewDefault().Scrub("NIK 0812345678901234")

	require.Equal(t, []string{CategoryNIK}, categories(res.DetectedItems))
}

func TestScrubIsIdempotent(t *testing.T) {
	r := NewDefault()
	for _, text := range sampleTexts {
		first := r.Scrub(text)
		second := r.Scrub(first.ScrubbedText)
		require.Empty(t, second.DetectedItems, "rescrub of %q found %v", text, second.DetectedItems)
		require.Equal(t, first.ScrubbedText, second.ScrubbedText)
	}
}

func TestContainsPIIAgreesWithScrub(t *testing.T) {
	r := NewDefault()
	for _, text := range sampleTexts {
		require.Equal(t, r.Scrub(text).Count() > 0, r.ContainsPII(text), "text %q", text)
	}
}

func TestScrubConcurrentCallersSeeSameResult(t *testing.T) {
	r := NewDefault()
	text := "NIK: 3201234567890123, Phone: +6281234567890, Email: john@test.com, Jl. Sudirman No. 123"
	want := r.Scrub(text)

	var wg sync.WaitGroup
	results := make([]domain.ScrubResult, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Scrub(text)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestNewRejectsBrokenTables(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	dup := DefaultRules()
	dup = append(dup, dup[0])
	_, err = New(dup)
	require.ErrorContains(t, err, "duplicate category")

	_, err = New([]Rule{{Category: "any", Pattern: regexp.MustCompile(`x*`), Replacement: "[ANY]"}})
	require.ErrorContains(t, err, "matches empty text")

	_, err = New([]Rule{{Category: "token", Pattern: regexp.MustCompile(`REDACTED`), Replacement: "[TOKEN-REDACTED]"}})
	require.ErrorContains(t, err, "placeholder")
}

func TestNewCopiesRules(t *testing.T) {
	rules := DefaultRules()
	r, err := New(rules)
	require.NoError(t, err)

	rules[0].Replacement = "[CHANGED]"
	require.True(t, strings.Contains(r.Scrub("3201234567890123").ScrubbedText, "[NIK-REDACTED]"))
	require.Equal(t, []string{CategoryNIK, CategoryPhone, CategoryEmail, CategoryAddress}, r.Categories())
}
