package types

// Metadata is an opaque key-value bag attached to transactions and
// subscriptions. Values are always strings.
type Metadata map[string]string

// Merge returns a new Metadata with entries from other overwriting m.
func (m Metadata) Merge(other Metadata) Metadata {
	merged := make(Metadata, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
