package badger

import (
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	engine   interfaces.EngineStorage
	document interfaces.DocumentStorage
	thread   interfaces.ThreadStorage
	job      interfaces.JobStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		engine:   NewEngineStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		thread:   NewThreadStorage(db, logger),
		job:      NewJobStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// EngineStorage returns the Engine storage interface
func (m *Manager) EngineStorage() interfaces.EngineStorage {
	return m.engine
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// ThreadStorage returns the Thread storage interface
func (m *Manager) ThreadStorage() interfaces.ThreadStorage {
	return m.thread
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
