package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

const componentsLabel = "midiflow.components"

const (
	// MessageCounter measures number of messages.
	MessageCounter = "Messages"
	// ByteCounter measures number of message bytes.
	ByteCounter = "Bytes"
	// LatencyCounter measures latency between messages.
	LatencyCounter = "Latency"
	// StallCounter counts how many times components were stalled.
	StallCounter = "Stalls"
	// ComponentCounter counts number of components.
	ComponentCounter = "Components"
)

var (
	components = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		MessageCounter,
		ByteCounter,
		LatencyCounter,
		StallCounter,
		ComponentCounter,
	}
)

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return getCounters(getType(component))
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	components.Lock()
	defer components.Unlock()
	for component := range components.m {
		m[component] = getCounters(component)
	}
	return m
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(componentType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// MeasureFunc captures metrics when a message of size bytes passes.
type MeasureFunc func(size int)

// Meter creates new meter closure to capture component counters.
func Meter(component interface{}) MeasureFunc {
	t := getType(component)
	metric := components.get(t)
	metric.components.Add(1)
	calledAt := time.Now()
	var mu sync.Mutex
	return func(s int) {
		mu.Lock()
		metric.latency.set(time.Since(calledAt))
		calledAt = time.Now()
		mu.Unlock()
		metric.messages.Add(1)
		metric.bytes.Add(int64(s))
	}
}

// Stall counts a stall of provided component type.
func Stall(component interface{}) {
	components.get(getType(component)).stalls.Add(1)
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(componentType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[componentType]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(componentType)
	m.m[componentType] = metric
	return metric
}

type metric struct {
	key        string
	components *expvar.Int
	messages   *expvar.Int
	bytes      *expvar.Int
	stalls     *expvar.Int
	latency    *duration
}

func newMetric(componentType string) metric {
	m := metric{
		key:        componentType,
		components: expvar.NewInt(key(componentType, ComponentCounter)),
		messages:   expvar.NewInt(key(componentType, MessageCounter)),
		bytes:      expvar.NewInt(key(componentType, ByteCounter)),
		stalls:     expvar.NewInt(key(componentType, StallCounter)),
		latency:    &duration{},
	}
	expvar.Publish(key(componentType, LatencyCounter), m.latency)
	return m
}

func key(componentType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, componentType, counter)
}

func getType(component interface{}) string {
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
