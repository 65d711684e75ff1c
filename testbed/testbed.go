package testbed

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/memory"
	"github.com/spaghettifunk/prism/engine/renderer/renderpass"
)

// Config drives the testbed application.
type Config struct {
	// DescriptionPath is the TOML render pass description to compile.
	DescriptionPath string
	// Watch keeps the testbed running and rebuilds the plan whenever the
	// description file changes.
	Watch    bool
	LogLevel core.LogLevel
}

// App compiles a render pass description into an execute plan and dumps it
// through the logger. With Watch enabled it behaves like a tiny hot-reload
// loop for iterating on pass layouts.
type App struct {
	config    *Config
	allocator memory.Allocator
	plan      *renderpass.ExecuteInfo

	shutdown sync.Once
	done     chan struct{}
}

func New(config *Config) *App {
	return &App{
		config:    config,
		allocator: memory.HeapAllocator{},
		done:      make(chan struct{}),
	}
}

func (a *App) Initialize() error {
	core.SetLogLevel(a.config.LogLevel)
	if a.config.DescriptionPath == "" {
		return fmt.Errorf("testbed requires a render pass description path")
	}
	return nil
}

func (a *App) Run() error {
	if err := a.rebuild(); err != nil {
		return err
	}

	if !a.config.Watch {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating description watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors commonly replace the file on save, which
	// would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(a.config.DescriptionPath)); err != nil {
		return fmt.Errorf("watching %s: %w", a.config.DescriptionPath, err)
	}

	core.LogInfo("testbed: watching %s for changes", a.config.DescriptionPath)

	target := filepath.Clean(a.config.DescriptionPath)
	for {
		select {
		case <-a.done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := a.rebuild(); err != nil {
				core.LogError("testbed: rebuild failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			core.LogError("testbed: watcher error: %v", err)
		}
	}
}

func (a *App) Shutdown() error {
	a.shutdown.Do(func() {
		close(a.done)
		if a.plan != nil {
			a.plan.Release(a.allocator)
			a.plan = nil
		}
	})
	return nil
}

func (a *App) rebuild() error {
	description, err := renderpass.LoadDescription(a.config.DescriptionPath)
	if err != nil {
		return err
	}

	createInfo, err := description.CreateInfo()
	if err != nil {
		return err
	}

	arena := memory.NewArena()
	builder := renderpass.NewBuilder(arena)

	plan, err := builder.Build(createInfo, a.allocator)
	if err != nil {
		return err
	}

	if a.plan != nil {
		a.plan.Release(a.allocator)
	}
	a.plan = plan

	dumpPlan(plan)
	return nil
}

// dumpPlan logs a human-readable summary of a built execute plan.
func dumpPlan(plan *renderpass.ExecuteInfo) {
	core.LogInfo("plan %s: %d subpasses, %d byte block", plan.ID, len(plan.Subpasses), plan.BlockSize())

	for i := range plan.Subpasses {
		sp := &plan.Subpasses[i]

		core.LogInfo("subpass %d begin: flags=%#x colorTargets=%d colorClears=%d dsClears=%d",
			i, sp.Begin.Flags, sp.Begin.BindTargets.ColorTargetCount,
			len(sp.Begin.ColorClears), len(sp.Begin.DSClears))
		dumpSyncPoint("  syncTop", &sp.Begin.SyncTop)
		for _, clear := range sp.Begin.ColorClears {
			core.LogInfo("  clear color attachment %d in layout %d (aspect %#x)",
				clear.Attachment, clear.Layout.Layout, clear.Aspect)
		}
		for _, clear := range sp.Begin.DSClears {
			core.LogInfo("  clear depth/stencil attachment %d in layout %d (aspect %#x)",
				clear.Attachment, clear.Layout.Layout, clear.Aspect)
		}

		core.LogInfo("subpass %d end: flags=%#x resolves=%d", i, sp.End.Flags, len(sp.End.Resolves))
		dumpSyncPoint("  syncPreResolve", &sp.End.SyncPreResolve)
		for _, resolve := range sp.End.Resolves {
			core.LogInfo("  resolve attachment %d -> %d", resolve.Src.Attachment, resolve.Dst.Attachment)
		}
		dumpSyncPoint("  syncBottom", &sp.End.SyncBottom)
	}

	core.LogInfo("end state: flags=%#x", plan.End.Flags)
	dumpSyncPoint("  syncEnd", &plan.End.SyncEnd)
}

func dumpSyncPoint(name string, sync *renderpass.SyncPointInfo) {
	if !sync.Active() {
		core.LogInfo("%s: inactive", name)
		return
	}
	core.LogInfo("%s: stages %#x->%#x access %#x->%#x flags=%#x transitions=%d",
		name, sync.Barrier.SrcStageMask, sync.Barrier.DstStageMask,
		sync.Barrier.SrcAccessMask, sync.Barrier.DstAccessMask,
		sync.Barrier.Flags, len(sync.Transitions))
	for _, t := range sync.Transitions {
		initial := ""
		if t.Flags&renderpass.TransitionInitialLayout != 0 {
			initial = " (initial)"
		}
		core.LogInfo("%s: attachment %d layout %d -> %d%s",
			name, t.Attachment, t.PrevLayout.Layout, t.NextLayout.Layout, initial)
	}
}
