package indicator

// leafBase carries the callback that invalidates the owning indicator.
type leafBase struct {
	notify func()
}

func (b *leafBase) attach(notify func()) { b.notify = notify }

func (b *leafBase) changed() {
	if b.notify != nil {
		b.notify()
	}
}

// ManualEntry is a leaf whose score is typed in by a user.
type ManualEntry struct {
	leafBase
	score *int
}

func NewManualEntry() *ManualEntry { return &ManualEntry{} }

func (*ManualEntry) Kind() Kind { return KindManual }

// SetScore records v, rejecting values outside [0, 100].
func (m *ManualEntry) SetScore(v int) error {
	if err := validateScore(v); err != nil {
		return err
	}
	m.score = &v
	m.changed()
	return nil
}

// Clear leaves the indicator without a score.
func (m *ManualEntry) Clear() {
	m.score = nil
	m.changed()
}

func (m *ManualEntry) ComputeIndicator() (int, bool) {
	if m.score == nil {
		return 0, false
	}
	return *m.score, true
}
