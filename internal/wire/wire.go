// Package wire provides dependency injection for the Atelier application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/example/atelier/internal/adapters/generation"
	"github.com/example/atelier/internal/adapters/sqlite"
	"github.com/example/atelier/internal/app"
	"github.com/example/atelier/internal/config"
	"github.com/example/atelier/internal/db"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
	"github.com/example/atelier/internal/realtime"
)

var (
	cfg             *config.Config
	bus             *realtime.Bus
	projectRepo     secondary.ProjectRepository
	artifactRepo    secondary.ArtifactRepository
	pipelineService primary.PipelineService
	chatService     primary.ChatService
	projectService  primary.ProjectService
	once            sync.Once
)

// Bus returns the singleton realtime change bus.
func Bus() *realtime.Bus {
	once.Do(initServices)
	return bus
}

// Cfg returns the loaded configuration (zero-value config when no
// .atelier/config.json exists in the working directory).
func Cfg() *config.Config {
	once.Do(initServices)
	return cfg
}

// PipelineService returns the singleton PipelineService instance.
func PipelineService() primary.PipelineService {
	once.Do(initServices)
	return pipelineService
}

// ChatService returns the singleton ChatService instance.
func ChatService() primary.ChatService {
	once.Do(initServices)
	return chatService
}

// ProjectService returns the singleton ProjectService instance.
func ProjectService() primary.ProjectService {
	once.Do(initServices)
	return projectService
}

// ProjectRepo returns the singleton project repository.
func ProjectRepo() secondary.ProjectRepository {
	once.Do(initServices)
	return projectRepo
}

// ArtifactRepo returns the singleton artifact repository.
func ArtifactRepo() secondary.ArtifactRepository {
	once.Do(initServices)
	return artifactRepo
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}
	cfg, err = config.LoadConfig(cwd)
	if err != nil {
		// No config is fine - defaults apply.
		cfg = &config.Config{}
	}
	if cfg.DBPath != "" {
		db.SetPath(cfg.DBPath)
	}

	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	bus = realtime.NewBus()

	// Repository adapters (secondary ports) publish onto the bus.
	projectRepo = sqlite.NewProjectRepository(database, bus)
	messageRepo := sqlite.NewMessageRepository(database, bus)
	artifactRepo = sqlite.NewArtifactRepository(database, bus)
	logWriter := sqlite.NewLogWriterAdapter(database)

	generator := generation.NewClient(cfg.GenerationEndpoint(), cfg.ModelName())

	cooldown := time.Duration(cfg.CooldownMS) * time.Millisecond
	if cfg.CooldownMS == 0 {
		cooldown = time.Duration(config.DefaultCooldownMS) * time.Millisecond
	}

	// Services (primary ports implementation)
	pipelineService = app.NewPipelineService(artifactRepo, projectRepo, logWriter, bus)
	chatService = app.NewChatService(pipelineService, projectRepo, messageRepo, generator, cooldown)
	projectService = app.NewProjectService(projectRepo, logWriter)
}
