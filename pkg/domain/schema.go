package domain

// AttributeType is the value type an attribute carries.
type AttributeType string

const (
	AttributeNumber AttributeType = "number"
	AttributeString AttributeType = "string"
)

// ColumnSpec maps one source column onto a canonical attribute.
type ColumnSpec struct {
	Column    string        `yaml:"column" json:"column"`
	Attribute string        `yaml:"attribute" json:"attribute"`
	Type      AttributeType `yaml:"type" json:"type"`
	Required  bool          `yaml:"required,omitempty" json:"required,omitempty"`
}

// TimestampSpec locates the optional observation timestamp column.
type TimestampSpec struct {
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // Go reference layout, default RFC3339
}

// Schema describes how source rows map onto observations.
type Schema struct {
	Entity    string        `yaml:"entity" json:"entity"`                           // column holding the entity ID
	Delimiter string        `yaml:"delimiter,omitempty" json:"delimiter,omitempty"` // field delimiter, default ","
	Timestamp TimestampSpec `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	Columns   []ColumnSpec  `yaml:"columns" json:"columns"`
}

// DelimiterRune returns the configured field delimiter, defaulting to ','.
func (s Schema) DelimiterRune() rune {
	for _, r := range s.Delimiter {
		return r
	}
	return ','
}

// AttributeType returns the declared type of the named attribute.
func (s Schema) AttributeType(name string) (AttributeType, bool) {
	for _, c := range s.Columns {
		if c.Attribute == name {
			return c.Type, true
		}
	}
	return "", false
}

// Attributes lists every declared attribute name in schema order.
func (s Schema) Attributes() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Attribute)
	}
	return names
}

// NumericAttributes lists the attributes declared as numbers, in schema order.
func (s Schema) NumericAttributes() []string {
	var names []string
	for _, c := range s.Columns {
		if c.Type == AttributeNumber {
			names = append(names, c.Attribute)
		}
	}
	return names
}
