package core

import (
	"time"

	"github.com/rs/zerolog"
)

type Services struct {
	Server         *ServerService
	Key            *KeyService
	Heartbeat      *HeartbeatService
	Job            *JobService
	ServerState    *ServerStateService
	Directory      *DirectoryService
	RejectedReport *RejectedReportService
}

func NewServices(db TxDB, logger zerolog.Logger, staleTolerance time.Duration) *Services {
	keys := NewKeyService(db)
	jobs := NewJobService(db)
	audit := NewRejectedReportService(db)

	return &Services{
		Server:         NewServerService(db),
		Key:            keys,
		Heartbeat:      NewHeartbeatService(db, keys, jobs, audit, logger, staleTolerance),
		Job:            jobs,
		ServerState:    NewServerStateService(db),
		Directory:      NewDirectoryService(db),
		RejectedReport: audit,
	}
}
