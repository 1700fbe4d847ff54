package app

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"go-leave/internal/employee"
	"go-leave/internal/ingest"
	"go-leave/internal/leave"
	"go-leave/internal/leavetype"
	"go-leave/internal/shared/connection"
)

// RunIngestor watches the four data drop directories under LEAVE_DATA_DIR
// and upserts every spreadsheet placed in them until a shutdown signal
// arrives.
func RunIngestor() error {
	logger := zap.L().Named("app.ingestor")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	dataDir := os.Getenv("LEAVE_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	validator := ingest.NewFileValidator()

	employeeSvc := ingest.NewService(
		filepath.Join(dataDir, "employees"),
		ingest.NewReader(validator, ingest.NewEmployeeParser(), logger),
		employee.NewRepository(gormDB),
		logger,
	)
	leaveTypeSvc := ingest.NewService(
		filepath.Join(dataDir, "leave_types"),
		ingest.NewReader(validator, ingest.NewLeaveTypeParser(), logger),
		leavetype.NewRepository(gormDB),
		logger,
	)
	balanceSvc := ingest.NewService(
		filepath.Join(dataDir, "balances"),
		ingest.NewReader(validator, ingest.NewLeaveBalanceParser(), logger),
		leave.NewBalanceRepository(gormDB),
		logger,
	)
	requestSvc := ingest.NewService(
		filepath.Join(dataDir, "requests"),
		ingest.NewReader(validator, ingest.NewLeaveRequestParser(), logger),
		leave.NewRepository(gormDB),
		logger,
	)

	services := []ingest.Monitor{employeeSvc, leaveTypeSvc, balanceSvc, requestSvc}

	for _, svc := range services {
		if err := svc.StartMonitoring(); err != nil {
			return err
		}
	}
	logger.Info("ingestor started", zap.String("data_dir", dataDir))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("ingestor shutting down")
	for _, svc := range services {
		svc.StopMonitoring()
		svc.Close()
	}

	return nil
}
