package anova

import (
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/metrics"
	"github.com/anicoll/anova-integration/internal/pkg/model"
)

// Registry owns one Oven per device id seen on the relay.
type Registry struct {
	sender commander
	logger *zap.Logger

	mu           sync.RWMutex
	ovens        map[string]*Oven
	pendingNames map[string]string
	discovered   []DiscoveryHandler
}

func NewRegistry(sender commander, logger *zap.Logger) *Registry {
	return &Registry{
		sender:       sender,
		logger:       logger,
		ovens:        make(map[string]*Oven),
		pendingNames: make(map[string]string),
	}
}

// OnDiscovered registers a handler called once per newly created oven, before the
// snapshot that created it is applied.
func (r *Registry) OnDiscovered(h DiscoveryHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered = append(r.discovered, h)
}

// Upsert applies the snapshot to the oven with the given id, creating it first when the
// id has not been seen. A new oven is seeded with the snapshot, so it raises no cook
// event for a cook that was already running.
func (r *Registry) Upsert(deviceID string, s model.OvenState) *Oven {
	r.mu.Lock()
	oven, exists := r.ovens[deviceID]
	if !exists {
		name, ok := r.pendingNames[deviceID]
		if ok {
			delete(r.pendingNames, deviceID)
		} else {
			name = fallbackName(deviceID)
		}
		oven = newOven(deviceID, name, s, r.sender, r.logger)
		r.ovens[deviceID] = oven
	}
	count := len(r.ovens)
	handlers := append([]DiscoveryHandler(nil), r.discovered...)
	r.mu.Unlock()

	if !exists {
		r.logger.Info("discovered oven", zap.String("device_id", deviceID), zap.String("name", oven.Name()))
		metrics.Ovens.Set(float64(count))
		for _, h := range handlers {
			h(oven)
		}
	}
	oven.ApplySnapshot(s)
	return oven
}

func (r *Registry) Get(deviceID string) (*Oven, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	oven, ok := r.ovens[deviceID]
	return oven, ok
}

// List returns every known oven ordered by id.
func (r *Registry) List() []*Oven {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := lo.Keys(r.ovens)
	slices.Sort(ids)
	return lo.Map(ids, func(id string, _ int) *Oven {
		return r.ovens[id]
	})
}

// SetNames applies names from the discovery list. Names for ids not yet seen are kept
// until the oven is created.
func (r *Registry) SetNames(entries []model.WifiListEntry) {
	for _, entry := range entries {
		if entry.CookerID == "" || entry.Name == "" {
			continue
		}
		r.mu.Lock()
		oven, ok := r.ovens[entry.CookerID]
		if !ok {
			r.pendingNames[entry.CookerID] = entry.Name
		}
		r.mu.Unlock()
		if ok {
			oven.SetName(entry.Name)
		}
	}
}

func fallbackName(deviceID string) string {
	prefix := deviceID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return "Oven " + prefix
}
