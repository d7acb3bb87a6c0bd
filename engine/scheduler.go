package engine

import (
	"fmt"
	"log/slog"

	database "github.com/drummonds/goPreview/database"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// InitializeSchedules starts all the cron jobs: the ingress walk on the
// configured interval and a nightly cleanup pass
func (serverHandler *ServerHandler) InitializeSchedules(db database.Repository) {
	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		fmt.Println("Error reading db when initializing")
	}

	// Run ingress job immediately at startup in a goroutine
	Logger.Info("Running ingress job at startup")
	go serverHandler.ingressJobFunc(serverConfig, db)

	c := cron.New()
	var ingressJob cron.Job
	ingressJob = cron.FuncJob(func() { serverHandler.ingressJobFunc(serverConfig, db) })
	ingressJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(ingressJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", serverConfig.IngressInterval), ingressJob)
	Logger.Info("Adding Ingress Job scheduler", "interval_minutes", serverConfig.IngressInterval)

	var cleanupJob cron.Job
	cleanupJob = cron.FuncJob(func() { serverHandler.scheduledCleanup(db) })
	cleanupJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cleanupJob)
	c.AddJob("@daily", cleanupJob)
	Logger.Info("Adding nightly cleanup scheduler")

	c.Start()
}

// scheduledCleanup runs the cleanup pass as a tracked job so nightly runs
// show up in the job history
func (serverHandler *ServerHandler) scheduledCleanup(db database.Repository) {
	job, err := db.CreateJob(database.JobTypeCleanup, "Nightly database cleanup")
	if err != nil {
		Logger.Error("Failed to create nightly cleanup job", "error", err)
		return
	}
	serverHandler.cleanupJobFuncWithTracking(db, job.ID)
}
