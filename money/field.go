package money

// =============================================================================
// FIELD - Interactive amount input model
// =============================================================================

// Key identifies the keystroke that triggered a field update. Control
// keys must not reformat the field: reformatting during selection or
// cursor movement would destroy the selection the user is building.
type Key int

const (
	KeyCharacter Key = iota
	KeyShift
	KeyControl
	KeyArrow
	KeySelectAll
)

// Editable returns true when the key can change the field text.
func (k Key) Editable() bool { return k == KeyCharacter }

// Field models a currency input: the display text plus the cursor
// position within it. Apply is called after every keystroke and keeps
// the text formatted while moving the cursor by the length delta the
// formatting introduced, so typing "1234" reads "1,234" with the cursor
// still after the "4".
type Field struct {
	Text   string
	Cursor int
}

// Apply reformats the field after a keystroke. Non-editing keys pass
// through untouched.
func (f *Field) Apply(k Key) {
	if !k.Editable() {
		return
	}
	before := len(f.Text)
	digits := stripNonDigits(f.Text)
	f.Text = groupDigits(digits)
	gap := len(f.Text) - before
	f.Cursor += gap
	if f.Cursor < 0 {
		f.Cursor = 0
	}
	if f.Cursor > len(f.Text) {
		f.Cursor = len(f.Text)
	}
}

// Value parses the field's current text.
func (f *Field) Value() (int64, error) {
	return ParseAmount(f.Text)
}

func stripNonDigits(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func groupDigits(digits string) string {
	if digits == "" {
		return ""
	}
	// Leading zeros are kept as typed; only grouping is applied.
	var b []byte
	lead := len(digits) % 3
	if lead > 0 {
		b = append(b, digits[:lead]...)
	}
	for i := lead; i < len(digits); i += 3 {
		if len(b) > 0 {
			b = append(b, ',')
		}
		b = append(b, digits[i:i+3]...)
	}
	return string(b)
}
