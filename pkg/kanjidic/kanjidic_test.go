package kanjidic

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<kanjidic2>
<header><file_version>4</file_version></header>
<character>
<literal>亜</literal>
<codepoint>
<cp_value cp_type="ucs">4e9c</cp_value>
<cp_value cp_type="jis208">1-16-01</cp_value>
</codepoint>
<misc>
<grade>8</grade>
<stroke_count>7</stroke_count>
<stroke_count>8</stroke_count>
<freq>1509</freq>
<jlpt>1</jlpt>
</misc>
<reading_meaning><rmgroup>
<reading r_type="pinyin">ya4</reading>
<reading r_type="ja_on">ア</reading>
<reading r_type="ja_kun">つ.ぐ</reading>
<meaning>Asia</meaning>
<meaning>rank next</meaning>
<meaning m_lang="fr">Asie</meaning>
<meaning>come after</meaning>
</rmgroup></reading_meaning>
</character>
<character>
<literal>𠮟</literal>
<codepoint><cp_value cp_type="ucs">20b9f</cp_value></codepoint>
<misc><stroke_count>5</stroke_count></misc>
</character>
</kanjidic2>`

func parseAll(t *testing.T, doc string) []Character {
	t.Helper()
	var out []Character
	err := Parse(context.Background(), strings.NewReader(doc), func(c Character) error {
		out = append(out, c)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestParseCharacters(t *testing.T) {
	chars := parseAll(t, sampleDoc)
	require.Len(t, chars, 2)

	a := chars[0]
	assert.Equal(t, "亜", a.Literal)
	assert.Equal(t, 7, a.StrokeCount)
	require.NotNil(t, a.Freq)
	assert.Equal(t, 1509, *a.Freq)
	require.NotNil(t, a.JLPT)
	assert.Equal(t, 1, *a.JLPT)
	assert.Equal(t, []string{"Asia", "rank next", "come after"}, a.Meanings)
	assert.Equal(t, []Reading{{Text: "ア", Type: ReadingOn}, {Text: "つ.ぐ", Type: ReadingKun}}, a.Readings)
	assert.Equal(t, "04e9c.svg", a.SVGFile)

	b := chars[1]
	assert.Nil(t, b.Freq)
	assert.Nil(t, b.JLPT)
	assert.Empty(t, b.Meanings)
	assert.Equal(t, "020b9f.svg", b.SVGFile)
}

func TestSVGFileName(t *testing.T) {
	assert.Equal(t, "05b66.svg", SVGFileName("5b66"))
	assert.Equal(t, "020b9f.svg", SVGFileName("20b9f"))
	assert.Equal(t, "", SVGFileName(" "))
}

func TestUnusualCodePointIsKeptAsWritten(t *testing.T) {
	doc := `<kanjidic2><character><literal>亜</literal>
<codepoint><cp_value cp_type="ucs">zz</cp_value></codepoint>
</character></kanjidic2>`
	chars := parseAll(t, doc)
	require.Len(t, chars, 1)
	assert.Equal(t, "0zz.svg", chars[0].SVGFile)
}

func TestCharacterWithoutLiteral(t *testing.T) {
	err := Parse(context.Background(), strings.NewReader(`<kanjidic2><character><misc/></character></kanjidic2>`),
		func(Character) error { return nil })
	assert.True(t, errors.Is(err, ErrStructure), "got %v", err)
}

func TestParseTruncated(t *testing.T) {
	err := Parse(context.Background(), strings.NewReader(sampleDoc[:200]), func(Character) error { return nil })
	assert.Error(t, err)
}
