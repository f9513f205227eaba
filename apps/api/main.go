package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoapi "github.com/mutabaa-app/mutabaa/apps/api/echo"
	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/center"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/report"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
	"github.com/mutabaa-app/mutabaa/core/upload"
	"github.com/mutabaa-app/mutabaa/core/user"
	emailsvc "github.com/mutabaa-app/mutabaa/services/email"
	logsvc "github.com/mutabaa-app/mutabaa/services/logger"
	mongodb "github.com/mutabaa-app/mutabaa/storage/mongo"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := mongodb.Open(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	if err = mongodb.EnsureIndexes(context.Background(), db); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring database indexes: %v", err), err)
	}
	defer func() {
		if err = db.Client().Disconnect(context.Background()); err != nil {
			logger.Error(fmt.Sprintf("disconnecting database: %v", err), err)
		}
	}()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	studentRepo := mongodb.NewStudentRepository(db)
	recordRepo := mongodb.NewRecordRepository(db)

	recordSvc := record.NewService(recordRepo)
	studentSvc := student.NewService(studentRepo, recordRepo)
	sessionSvc := session.NewService(mongodb.NewSessionRepository(db), studentRepo, recordRepo)
	centerSvc := center.NewService(mongodb.NewCenterRepository(db), recordRepo)
	uploadSvc := upload.NewService(studentSvc, sessionSvc, recordSvc, logger)
	reportSvc := report.NewService(studentSvc, sessionSvc, recordSvc)
	userSvc := user.NewService(mongodb.NewUserRepository(db), mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Address:    core.Conf.Server.Address(),
		Logger:     logger,
		UserSvc:    userSvc,
		StudentSvc: studentSvc,
		SessionSvc: sessionSvc,
		RecordSvc:  recordSvc,
		CenterSvc:  centerSvc,
		UploadSvc:  uploadSvc,
		ReportSvc:  reportSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
