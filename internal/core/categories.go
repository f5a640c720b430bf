package core

// Built-in expense categories. Records store the display name, so renaming a
// constant here is a data migration, not a refactor.
const (
	CategoryFood      = "Thực phẩm"
	CategoryHousehold = "Đồ gia dụng"
	CategoryCosmetics = "Mỹ phẩm"
	CategoryFashion   = "Thời trang"
	CategoryHealth    = "Sức khỏe"
	CategoryOther     = "Khác"
)

// CategoryInfo carries the display attributes for a built-in category.
type CategoryInfo struct {
	Name  string
	Icon  string
	Color string
}

var categories = []CategoryInfo{
	{Name: CategoryFood, Icon: "carrot", Color: "#FED7AA"},
	{Name: CategoryHousehold, Icon: "house-chimney", Color: "#BFDBFE"},
	{Name: CategoryCosmetics, Icon: "sparkles", Color: "#FBCFE8"},
	{Name: CategoryFashion, Icon: "shirt", Color: "#E9D5FF"},
	{Name: CategoryHealth, Icon: "heart-pulse", Color: "#FECACA"},
	{Name: CategoryOther, Icon: "ellipsis", Color: "#E5E7EB"},
}

// Categories returns the built-in categories in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// CategoryColor returns the display color for a category. Custom categories
// fall back to the neutral "Khác" color.
func CategoryColor(name string) string {
	for _, c := range categories {
		if c.Name == name {
			return c.Color
		}
	}
	return "#E5E7EB"
}

// IsBuiltinCategory reports whether name is one of the preset categories.
// Expenses may also carry user-defined category strings.
func IsBuiltinCategory(name string) bool {
	for _, c := range categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Theme is a named color theme for the app shell.
type Theme string

const (
	ThemePink     Theme = "pink"
	ThemeMint     Theme = "mint"
	ThemeLavender Theme = "lavender"
)

// ThemePalette is the small set of colors a theme contributes.
type ThemePalette struct {
	Background string
	Primary    string
	Accent     string
}

var themes = map[Theme]ThemePalette{
	ThemePink:     {Background: "#FFF5F7", Primary: "#FFDEE9", Accent: "#FFD1FF"},
	ThemeMint:     {Background: "#F0FFF4", Primary: "#E0FFF4", Accent: "#C1FFD7"},
	ThemeLavender: {Background: "#F5F3FF", Primary: "#E2E2FF", Accent: "#D1D1FF"},
}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	_, ok := themes[t]
	return ok
}

// Palette returns the theme colors, defaulting to pink for unknown themes.
func (t Theme) Palette() ThemePalette {
	if p, ok := themes[t]; ok {
		return p
	}
	return themes[ThemePink]
}
