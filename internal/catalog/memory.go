package catalog

import "sync"

// MemoryDirectory is an in-memory InstanceDirectory, used in place of
// SQLiteDirectory for tests that should not depend on cgo or a real
// database file.
type MemoryDirectory struct {
	mu sync.Mutex

	timeseries map[string]bool
	measurands map[string]bool
	sources    map[string]bool
	attributes map[string]bool

	instances map[string]Instance            // handle -> instance
	byKey     map[instanceKey]string          // (ts, freq, measurand, source) -> handle
	values    map[string]map[string]string    // handle -> attribute -> value
}

type instanceKey struct {
	tsID      string
	freq      string
	measurand string
	source    string
}

// NewMemoryDirectory builds an empty in-memory catalog.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		timeseries: make(map[string]bool),
		measurands: make(map[string]bool),
		sources:    make(map[string]bool),
		attributes: make(map[string]bool),
		instances:  make(map[string]Instance),
		byKey:      make(map[instanceKey]string),
		values:     make(map[string]map[string]string),
	}
}

func (m *MemoryDirectory) RegisterTimeseries(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timeseries[id] {
		return wrapDuplicate("timeseries", id)
	}
	m.timeseries[id] = true
	return nil
}

func (m *MemoryDirectory) RegisterMeasurand(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.measurands[name] {
		return wrapDuplicate("measurand", name)
	}
	m.measurands[name] = true
	return nil
}

func (m *MemoryDirectory) RegisterSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sources[name] {
		return wrapDuplicate("source", name)
	}
	m.sources[name] = true
	return nil
}

func (m *MemoryDirectory) RegisterAttribute(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attributes[name] {
		return wrapDuplicate("attribute", name)
	}
	m.attributes[name] = true
	return nil
}

func (m *MemoryDirectory) BindAttributeValue(handle, attribute, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.attributes[attribute] {
		return wrapMissingAttribute("attribute", attribute)
	}
	if _, ok := m.instances[handle]; !ok {
		return wrapNotFound("instance", handle)
	}
	if m.values[handle] == nil {
		m.values[handle] = make(map[string]string)
	}
	m.values[handle][attribute] = value
	return nil
}

func (m *MemoryDirectory) CreateInstance(tsID, freq, initialMetadata, measurand, source string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.timeseries[tsID] {
		return "", wrapMissingAttribute("timeseries", tsID)
	}
	if !m.measurands[measurand] {
		return "", wrapMissingAttribute("measurand", measurand)
	}
	if !m.sources[source] {
		return "", wrapMissingAttribute("source", source)
	}

	key := instanceKey{tsID, freq, measurand, source}
	if _, ok := m.byKey[key]; ok {
		return "", wrapDuplicate("instance", tsID+"/"+freq+"/"+measurand+"/"+source)
	}

	handle, err := NewHandle()
	if err != nil {
		return "", err
	}
	m.instances[handle] = Instance{
		Handle:          handle,
		TimeseriesID:    tsID,
		Frequency:       freq,
		InitialMetadata: initialMetadata,
		Measurand:       measurand,
		Source:          source,
	}
	m.byKey[key] = handle
	return handle, nil
}

func (m *MemoryDirectory) Lookup(tsID, freq, measurand, source string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, ok := m.byKey[instanceKey{tsID, freq, measurand, source}]
	if !ok {
		return "", wrapNotFound("instance", tsID+"/"+freq+"/"+measurand+"/"+source)
	}
	return handle, nil
}

func (m *MemoryDirectory) ListTimeseries() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.timeseries), nil
}

func (m *MemoryDirectory) ListMeasurands() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.measurands), nil
}

func (m *MemoryDirectory) ListSources() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.sources), nil
}

func (m *MemoryDirectory) ListInstances(filter InstanceFilter) ([]Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		if filter.TimeseriesID != "" && inst.TimeseriesID != filter.TimeseriesID {
			continue
		}
		if filter.Measurand != "" && inst.Measurand != filter.Measurand {
			continue
		}
		if filter.Source != "" && inst.Source != filter.Source {
			continue
		}
		withAttrs := inst
		withAttrs.Attributes = m.values[inst.Handle]
		out = append(out, withAttrs)
	}
	return out, nil
}

func (m *MemoryDirectory) SchemaVersion() (int, error) {
	return SchemaVersion, nil
}

func (m *MemoryDirectory) Close() error { return nil }

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
