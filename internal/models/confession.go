// Package models defines the domain entities and the API error taxonomy.
package models

// Confession is the core record. Its JSON serialization is the sorted-set
// member in Redis, so the field order and tags must stay stable: two records
// with byte-identical serializations cannot coexist as distinct members.
type Confession struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Color     string `json:"color"`
	Date      string `json:"date"`
	CreatedAt int64  `json:"createdAt"` // ms since epoch, also the sorted-set score
}

// Palette is the fixed set of card colors accepted at creation time.
var Palette = []string{
	"#8B9DC3",
	"#A8D5BA",
	"#DDA15E",
	"#BC6C25",
	"#6B9080",
	"#C77DFF",
	"#7B9E89",
	"#C9ADA7",
	"#B8A4C9",
	"#F4A5A5",
	"#CE6A85",
	"#80B192",
}

// IsPaletteColor reports whether color is in the allowed palette.
func IsPaletteColor(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}
