package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/dto"
	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/service/activity"
	"petwatch/internal/service/heatmap"
	"petwatch/internal/service/occlusion"
	"petwatch/internal/service/scheduler"
	"petwatch/internal/service/websocket"
	"petwatch/internal/timeutil"
)

// Manager wires the per-device services to the schedulers and the event hub.
type Manager struct {
	activityService  *activity.Service
	heatmapService   *heatmap.Service
	occlusionService *occlusion.Service
	websocketService *websocket.HubService
	scheduler        *scheduler.Scheduler
	clock            timeutil.Clock
	logger           *logger.Logger

	devices          []string
	schedulerEnabled bool

	stateMu   sync.Mutex
	lastState map[string]bool
	wg        sync.WaitGroup
}

func NewManager(cfg *config.Config, activityService *activity.Service, heatmapService *heatmap.Service, occlusionService *occlusion.Service, websocketService *websocket.HubService, sched *scheduler.Scheduler, clock timeutil.Clock, logger *logger.Logger) *Manager {
	return &Manager{
		activityService:  activityService,
		heatmapService:   heatmapService,
		occlusionService: occlusionService,
		websocketService: websocketService,
		scheduler:        sched,
		clock:            clock,
		logger:           logger,
		devices:          cfg.DeviceSerials,
		schedulerEnabled: cfg.SchedulerEnabled,
		lastState:        make(map[string]bool),
	}
}

// Start launches both scheduler loops; they stop when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	if !m.schedulerEnabled {
		m.logger.Warning("Scheduler disabled, activity and heatmaps only update on request")
		return
	}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.scheduler.RunShortCadence(ctx, m.ProcessWindow)
	}()
	go func() {
		defer m.wg.Done()
		m.scheduler.RunDailyCadence(ctx, m.ProcessDay)
	}()

	m.logger.Info("Schedulers started for %d device(s)", len(m.devices))
}

// Wait blocks until the scheduler loops have returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// ProcessWindow aggregates [start, end) for every configured device.
func (m *Manager) ProcessWindow(ctx context.Context, start, end time.Time) error {
	return m.forEachDevice(func(device string) error {
		buckets, err := m.activityService.ProcessInterval(ctx, device, start, end)
		if err != nil {
			return err
		}
		m.publish(dto.EventActivityUpdated, device, buckets)
		return nil
	})
}

// ProcessDay renders and uploads the heatmap of day for every configured device.
func (m *Manager) ProcessDay(ctx context.Context, day time.Time) error {
	date := day.Format(model.DateLayout)
	return m.forEachDevice(func(device string) error {
		result, err := m.heatmapService.GenerateAndUpload(ctx, device, date, heatmap.ModeCron)
		if err != nil {
			return err
		}
		if !result.Success {
			m.logger.Warning("Heatmap %s %s: %s", device, date, result.Message)
			return nil
		}
		m.publish(dto.EventHeatmapGenerated, device, result)
		return nil
	})
}

// State classifies a device and announces verdict changes on the hub.
func (m *Manager) State(ctx context.Context, device string) (model.OcclusionVerdict, error) {
	verdict, err := m.occlusionService.State(ctx, device)
	if err != nil {
		return verdict, err
	}

	m.stateMu.Lock()
	previous, known := m.lastState[device]
	m.lastState[device] = verdict.IsHiding
	m.stateMu.Unlock()

	if !known || previous != verdict.IsHiding {
		m.publish(dto.EventStateChanged, device, verdict)
	}
	return verdict, nil
}

func (m *Manager) forEachDevice(work func(device string) error) error {
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup

	for _, device := range m.devices {
		wg.Add(1)
		go func(device string) {
			defer wg.Done()
			if err := work(device); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", device, err))
				mu.Unlock()
			}
		}(device)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (m *Manager) publish(eventType, device string, payload interface{}) {
	m.websocketService.Publish(dto.Event{
		Type:         eventType,
		DeviceSerial: device,
		Time:         m.clock.Now(),
		Payload:      payload,
	})
}

func (m *Manager) Devices() []string {
	return m.devices
}

// Clock returns the clock shared by the services.
func (m *Manager) Clock() timeutil.Clock {
	return m.clock
}

func (m *Manager) GetActivityService() *activity.Service {
	return m.activityService
}

func (m *Manager) GetHeatmapService() *heatmap.Service {
	return m.heatmapService
}

func (m *Manager) GetOcclusionService() *occlusion.Service {
	return m.occlusionService
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}
