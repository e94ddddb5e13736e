package importers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readnext/internal/entities"
)

const goodreadsHeader = "Book Id,Title,Author,My Rating,Exclusive Shelf"

func intPtr(v int) *int { return &v }

func TestParseGoodreadsCSV_ValidRows(t *testing.T) {
	csv := goodreadsHeader + "\n" +
		"1,Dune,Frank Herbert,5,read\n" +
		"2,Circe,Madeline Miller,0,currently-reading\n" +
		"3,Piranesi,Susanna Clarke,,to-read\n"

	result := ParseGoodreadsCSV(csv)

	require.Empty(t, result.Errors)
	require.Len(t, result.Books, 3)
	assert.Equal(t, 0, result.Skipped)

	assert.Equal(t, GoodreadsBook{Title: "Dune", Author: "Frank Herbert", Status: entities.StatusRead, Rating: intPtr(5)}, result.Books[0])
	assert.Equal(t, entities.StatusReading, result.Books[1].Status)
	assert.Nil(t, result.Books[1].Rating)
	assert.Equal(t, entities.StatusWantToRead, result.Books[2].Status)
	assert.Nil(t, result.Books[2].Rating)
}

func TestParseGoodreadsCSV_EmptyFile(t *testing.T) {
	for _, content := range []string{"", "\n\n", "  \r\n"} {
		result := ParseGoodreadsCSV(content)
		assert.Equal(t, []string{"CSV file is empty"}, result.Errors)
		assert.Empty(t, result.Books)
		assert.True(t, result.Failed())
	}
}

func TestParseGoodreadsCSV_MissingColumns(t *testing.T) {
	result := ParseGoodreadsCSV("Book Id,Title,My Rating\n1,Dune,5\n")

	assert.Equal(t, []string{"Missing required columns: Author, Exclusive Shelf"}, result.Errors)
	assert.Empty(t, result.Books)
	assert.Equal(t, 0, result.Skipped)
}

func TestParseGoodreadsCSV_HeaderCellsAreTrimmed(t *testing.T) {
	result := ParseGoodreadsCSV(" Title , Author ,Exclusive Shelf \nDune,Frank Herbert,read\n")

	require.Empty(t, result.Errors)
	require.Len(t, result.Books, 1)
	assert.Nil(t, result.Books[0].Rating)
}

func TestParseGoodreadsCSV_RowErrorsAndSkips(t *testing.T) {
	csv := goodreadsHeader + "\n" +
		"1,,Frank Herbert,5,read\n" +
		"2,Circe,Madeline Miller,4,did-not-finish\n" +
		"3,Dune,,3,read\n" +
		"4,Piranesi,Susanna Clarke,4,read\n"

	result := ParseGoodreadsCSV(csv)

	assert.Equal(t, []string{
		"Row 2: Missing title or author",
		"Row 4: Missing title or author",
	}, result.Errors)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Books, 1)
	assert.Equal(t, "Piranesi", result.Books[0].Title)
	assert.False(t, result.Failed())
}

func TestParseGoodreadsCSV_BlankLinesDoNotShiftRowNumbers(t *testing.T) {
	csv := goodreadsHeader + "\r\n\r\n" +
		"1,Dune,Frank Herbert,5,read\r\n" +
		"\r\n" +
		"2,,Nobody,1,read\r\n"

	result := ParseGoodreadsCSV(csv)

	assert.Equal(t, []string{"Row 3: Missing title or author"}, result.Errors)
	assert.Len(t, result.Books, 1)
}

func TestParseGoodreadsCSV_ShortRow(t *testing.T) {
	result := ParseGoodreadsCSV(goodreadsHeader + "\n1,Dune\n")

	assert.Equal(t, []string{"Row 2: Missing title or author"}, result.Errors)
}

func TestParseGoodreadsCSV_QuotedFields(t *testing.T) {
	csv := goodreadsHeader + "\n" +
		`1,"The Hitchhiker's Guide, Vol. 1","Adams, Douglas",4,read` + "\n" +
		`2,"The ""Real"" Story",Someone,2,to-read` + "\n"

	result := ParseGoodreadsCSV(csv)

	require.Empty(t, result.Errors)
	require.Len(t, result.Books, 2)
	assert.Equal(t, "The Hitchhiker's Guide, Vol. 1", result.Books[0].Title)
	assert.Equal(t, "Adams, Douglas", result.Books[0].Author)
	assert.Equal(t, `The "Real" Story`, result.Books[1].Title)
}

func TestParseGoodreadsCSV_ByteOrderMark(t *testing.T) {
	result := ParseGoodreadsCSV("\ufeffTitle,Author,Exclusive Shelf\nDune,Frank Herbert,read\n")

	require.Empty(t, result.Errors)
	assert.Len(t, result.Books, 1)
}

func TestMapShelf(t *testing.T) {
	tests := []struct {
		shelf  string
		want   entities.ReadingStatus
		wantOK bool
	}{
		{"read", entities.StatusRead, true},
		{"READ", entities.StatusRead, true},
		{" currently-reading ", entities.StatusReading, true},
		{"to-read", entities.StatusWantToRead, true},
		{"favorites", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.shelf, func(t *testing.T) {
			got, ok := MapShelf(tt.shelf)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		input string
		want  *int
	}{
		{"5", intPtr(5)},
		{"1", intPtr(1)},
		{"0", nil},
		{"", nil},
		{"abc", nil},
		{"7", intPtr(5)},
		{"-2", intPtr(1)},
		{"4.0", intPtr(4)},
		{" 3 ", intPtr(3)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRating(tt.input))
		})
	}
}

func TestSplitCSVLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"trims fields", " a , b ", []string{"a", "b"}},
		{"quoted comma", `"Smith, John",x`, []string{"Smith, John", "x"}},
		{"escaped quote", `"say ""hi""",y`, []string{`say "hi"`, "y"}},
		{"trailing empty", "a,", []string{"a", ""}},
		{"empty line", "", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCSVLine(tt.line))
		})
	}
}
