package vom

import (
	"github.com/sirupsen/logrus"

	"github.com/agoric-labs/vom/codec"
	"github.com/agoric-labs/vom/slot"
)

/*
Option defines a functional configuration modifier for Manager,
covering every pluggable collaborator: Codec, SlotParser, SlotTable,
the export-id allocator, and the logger. New()'s signature stays stable
as more of these are added.
*/
type Option func(*Manager)

// WithCodec overrides the default JSON codec.
func WithCodec(c codec.Codec) Option {
	return func(m *Manager) { m.cdc = c }
}

// WithSlotParser overrides the default vref grammar.
func WithSlotParser(p slot.Parser) Option {
	return func(m *Manager) { m.parser = p }
}

// WithSlotTable overrides the default in-process slot table. Hosts
// that already maintain a representative<->slot association — the
// usual case, since the inverse slot->representative direction is
// maintained externally by the host's own dispatch layer — can pass
// in their own *slot.Table instance here instead.
func WithSlotTable(t *slot.Table) Option {
	return func(m *Manager) { m.slots = t }
}

// WithExportIDAllocator overrides the default sequential kind-id
// allocator.
func WithExportIDAllocator(a ExportIDAllocator) Option {
	return func(m *Manager) { m.alloc = a }
}

// WithLogger overrides the default standard logrus logger.
func WithLogger(l *logrus.Logger) Option {
	return func(m *Manager) { m.log = l }
}
