package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/crystal-mush/gomaze/pkg/boltstore"
	"github.com/crystal-mush/gomaze/pkg/events"
	"github.com/crystal-mush/gomaze/pkg/grid"
	"github.com/crystal-mush/gomaze/pkg/maze"
	"github.com/crystal-mush/gomaze/pkg/room"
	"github.com/crystal-mush/gomaze/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// envInt is envDefault for integer settings; unparsable values are ignored.
func envInt(envVar string) int {
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("WARNING: ignoring %s=%q: not a number", envVar, v)
	}
	return 0
}

func main() {
	confFile := flag.String("conf", envDefault("MAZE_CONF", ""), "Path to maze config file (env: MAZE_CONF)")
	boltPath := flag.String("bolt", envDefault("MAZE_BOLT", ""), "Path to bbolt database, overrides config (env: MAZE_BOLT)")
	port := flag.Int("port", envInt("MAZE_PORT"), "TCP port to listen on, overrides config (env: MAZE_PORT)")
	webPort := flag.Int("webport", envInt("MAZE_WEB_PORT"), "HTTP port, overrides config (env: MAZE_WEB_PORT)")
	wallDir := flag.String("walldir", envDefault("MAZE_WALLDIR", ""), "Directory for message-wall logs, overrides config (env: MAZE_WALLDIR)")
	fresh := flag.Bool("fresh", os.Getenv("MAZE_FRESH") == "true", "Ignore the saved maze and start over (env: MAZE_FRESH)")
	backup := flag.String("backup", "", "Write a copy of the bbolt database to this path and exit")
	flag.Parse()

	log.Printf("Welcome to %s", server.VersionString())

	gc := server.DefaultGameConf()
	if *confFile != "" {
		var err error
		gc, err = server.LoadGameConf(*confFile)
		if err != nil {
			log.Fatalf("Error loading maze config: %v", err)
		}
		log.Printf("Loaded maze config from %s", *confFile)
	}
	if *boltPath != "" {
		gc.BoltPath = *boltPath
	}
	if *port != 0 {
		gc.Port = *port
	}
	if *webPort != 0 {
		gc.WebPort = *webPort
	}
	if *wallDir != "" {
		gc.WallDir = *wallDir
	}
	if err := gc.Validate(); err != nil {
		log.Fatalf("Error in maze config: %v", err)
	}

	// Backup mode: copy the database and exit
	if *backup != "" {
		store, err := boltstore.Open(gc.BoltPath)
		if err != nil {
			log.Fatalf("Error opening bolt database: %v", err)
		}
		if err := store.Backup(*backup); err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		store.Close()
		log.Printf("Backed up %s to %s", gc.BoltPath, *backup)
		return
	}

	pool := append([]string(nil), gc.Descriptions...)
	if gc.DescriptionsFile != "" {
		extra, err := server.LoadDescriptionFile(gc.DescriptionsFile)
		if err != nil {
			log.Printf("WARNING: %v", err)
		} else {
			log.Printf("Loaded %d descriptions from %s", len(extra), gc.DescriptionsFile)
			pool = append(pool, extra...)
		}
	}

	topo, err := grid.New(gc.Width, gc.Height)
	if err != nil {
		log.Fatalf("Error in maze config: %v", err)
	}
	owner := gc.OwnerID()
	bus := events.NewBus()
	hub := server.NewHub(owner, bus)

	factory, err := maze.NewFactory(maze.FactoryConfig{
		Owner:        owner,
		Topology:     topo,
		Transport:    hub,
		Descriptions: pool,
		WallDir:      gc.WallDir,
		MainHall:     gc.MainHall,
		ScrollDelay:  gc.ScrollDelay(),
	})
	if err != nil {
		log.Fatalf("Error building maze: %v", err)
	}
	mz := maze.New(topo, factory)
	hub.SetRooms(mz)

	if *fresh && gc.BoltPath != "" {
		if err := os.Remove(gc.BoltPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Error removing bolt database for fresh start: %v", err)
		}
		log.Printf("Fresh start: removed %s", gc.BoltPath)
	}
	store, err := boltstore.Open(gc.BoltPath)
	if err != nil {
		log.Fatalf("Error opening bolt database: %v", err)
	}
	items := loadMaze(store, mz, owner, topo)
	if items == nil {
		items = configItems(gc.Items)
	}
	mz.SetSink(store)
	hub.SetItemSink(store)
	if err := store.PutMeta(boltstore.Meta{Owner: owner, Width: gc.Width, Height: gc.Height, SavedAt: time.Now()}); err != nil {
		log.Printf("WARNING: %v", err)
	}
	for _, it := range items {
		if err := hub.PlaceItem(room.Item{ID: it.ID, Name: it.Name}, it.Room); err != nil {
			log.Printf("WARNING: %v", err)
		}
	}

	// Make sure the start room exists before anyone connects.
	if _, err := mz.Find(server.StartRoom); err != nil {
		log.Fatalf("Error building start room: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := server.NewMetrics(mz, time.Now())
	hub.SetMetrics(metrics)

	var transcript *server.Transcript
	if gc.TranscriptDB != "" {
		transcript, err = server.OpenTranscript(gc.TranscriptDB, gc.TranscriptLimit)
		if err != nil {
			log.Printf("WARNING: failed to open transcript database %s: %v", gc.TranscriptDB, err)
		} else {
			bus.SubscribeGlobal(transcript)
			server.StartRetentionCleanup(ctx, transcript, time.Duration(gc.TranscriptRetention)*time.Second)
			log.Printf("Transcript enabled, database: %s", gc.TranscriptDB)
		}
	}

	if gc.DescriptionsFile != "" {
		if err := server.WatchDescriptions(ctx, gc.DescriptionsFile, gc.Descriptions, factory); err != nil {
			log.Printf("WARNING: %v", err)
		}
	}

	cfg := server.DefaultConfig()
	cfg.Name = gc.MazeName
	cfg.OOBTimeout = time.Duration(gc.OOBTimeoutMS) * time.Millisecond
	cfg.Host = gc.Host
	cfg.Port = gc.Port
	cfg.IdleTimeout = time.Duration(gc.IdleTimeout) * time.Second
	srv := server.NewServer(hub, cfg)
	if gc.WebEnabled {
		srv.SetWebServer(server.NewWebServer(hub, transcript, metrics, server.WebConfig{
			Host:        gc.Host,
			Port:        gc.WebPort,
			CORSOrigins: gc.WebCORSOrigins,
			RateLimit:   gc.WebRateLimit,
		}))
	}

	log.Printf("Starting %s (%s, %dx%d) on port %d...", gc.MazeName, owner, gc.Width, gc.Height, gc.Port)
	if err := srv.Start(ctx); err != nil {
		log.Printf("Server error: %v", err)
	}

	log.Printf("Shutting down")
	meta := boltstore.Meta{Owner: owner, Width: gc.Width, Height: gc.Height, SavedAt: time.Now()}
	if err := store.SaveSnapshot(meta, mz.Records(), hub.ItemRecords()); err != nil {
		log.Printf("WARNING: final save failed: %v", err)
	}
	mz.Close()
	if transcript != nil {
		transcript.Close()
	}
	if err := store.Close(); err != nil {
		log.Printf("WARNING: %v", err)
	}
}

// loadMaze restores rooms saved for this maze. It returns the saved items,
// or nil when the database is fresh or belongs to a different maze.
func loadMaze(store *boltstore.Store, mz *maze.Maze, owner string, topo grid.Topology) []boltstore.ItemRecord {
	meta, ok, err := store.LoadMeta()
	if err != nil {
		log.Fatalf("Error loading from bolt: %v", err)
	}
	if !ok {
		if store.HasData() {
			log.Printf("WARNING: %s holds rooms but no maze header; discarding them", store.Path())
			if err := store.Reset(); err != nil {
				log.Fatalf("Error discarding saved maze: %v", err)
			}
			return nil
		}
		log.Printf("No saved maze in %s, starting fresh", store.Path())
		return nil
	}
	if meta.Owner != owner || meta.Width != topo.Width || meta.Height != topo.Height {
		log.Printf("WARNING: saved maze is %s %dx%d, config is %s %dx%d; discarding it",
			meta.Owner, meta.Width, meta.Height, owner, topo.Width, topo.Height)
		if err := store.Reset(); err != nil {
			log.Fatalf("Error discarding saved maze: %v", err)
		}
		return nil
	}

	rooms, err := store.LoadRooms()
	if err != nil {
		log.Fatalf("Error loading rooms from bolt: %v", err)
	}
	n := mz.Restore(rooms)
	items, err := store.LoadItems()
	if err != nil {
		log.Fatalf("Error loading items from bolt: %v", err)
	}
	log.Printf("Restored %d rooms and %d items saved %s", n, len(items), meta.SavedAt.Format(time.RFC3339))
	if items == nil {
		items = []boltstore.ItemRecord{}
	}
	return items
}

func configItems(items []server.ItemConf) []boltstore.ItemRecord {
	out := make([]boltstore.ItemRecord, len(items))
	for i, it := range items {
		out[i] = boltstore.ItemRecord{ID: it.ID, Name: it.Name, Room: it.Room}
	}
	return out
}

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mazeserver [-conf maze.yaml] [-bolt maze.bolt] [-port 6250]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Environment variables (used as defaults when flags are not set):")
		fmt.Fprintln(os.Stderr, "  MAZE_CONF      Path to maze config file (.yaml)")
		fmt.Fprintln(os.Stderr, "  MAZE_BOLT      Path to bbolt database")
		fmt.Fprintln(os.Stderr, "  MAZE_PORT      TCP port to listen on")
		fmt.Fprintln(os.Stderr, "  MAZE_WEB_PORT  HTTP port")
		fmt.Fprintln(os.Stderr, "  MAZE_WALLDIR   Directory for message-wall logs")
		fmt.Fprintln(os.Stderr, "  MAZE_FRESH     Set to 'true' to ignore the saved maze")
		fmt.Fprintln(os.Stderr, "")
		flag.PrintDefaults()
	}
}
