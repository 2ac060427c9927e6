package archetypedb

import "github.com/voodooEntity/archivist"

// storeLogger wraps an *archivist.Archivist the way
// voodooEntity-cyberbrain's scheduler does (one field, checked for nil
// before every call), so an EntityStore built without WithLogger stays
// completely silent instead of requiring every caller to configure one.
type storeLogger struct {
	log *archivist.Archivist
}

func newStoreLogger(log *archivist.Archivist) storeLogger {
	return storeLogger{log: log}
}

func (l storeLogger) tableCreated(hash uint64, columns []string) {
	if l.log == nil {
		return
	}
	l.log.Debug(archivist.DEBUG_LEVEL_INFO, "archetypedb: table created hash=", hash, " columns=", columns)
}

func (l storeLogger) tableRekeyed(from, to uint64) {
	if l.log == nil {
		return
	}
	l.log.Debug(archivist.DEBUG_LEVEL_TRACE, "archetypedb: table rekeyed from=", from, " to=", to)
}

func (l storeLogger) allocationFailed(op string, err error) {
	if l.log == nil {
		return
	}
	l.log.Error("archetypedb: allocation failure during ", op, ": ", err)
}
