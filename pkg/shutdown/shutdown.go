// Package shutdown provides a graceful shutdown manager. Shutdown managers
// listen for a termination trigger (POSIX signals, for instance) and run the
// registered callbacks before the process exits.
package shutdown

import (
	"sync"
)

// Callback is called when a shutdown is requested.
type Callback interface {
	OnShutdown(string) error
}

// Func is a helper type so plain functions can be used as a Callback.
type Func func(string) error

// OnShutdown defines the action needed to run when shutdown triggered.
func (f Func) OnShutdown(shutdownManager string) error {
	return f(shutdownManager)
}

// Manager starts listening for a shutdown trigger and reports it through GSInterface.
type Manager interface {
	GetName() string
	Start(gs GSInterface) error
	ShutdownStart() error
	ShutdownFinish() error
}

// ErrorHandler handles errors returned by callbacks or managers.
type ErrorHandler interface {
	OnError(err error)
}

// ErrorFunc is a helper type so plain functions can be used as an ErrorHandler.
type ErrorFunc func(err error)

// OnError defines the action needed to run when error occurred.
func (f ErrorFunc) OnError(err error) {
	f(err)
}

// GSInterface is the view of GracefulShutdown that managers see.
type GSInterface interface {
	StartShutdown(sm Manager)
	ReportError(err error)
	AddShutdownCallback(callback Callback)
}

// GracefulShutdown holds managers and callbacks.
type GracefulShutdown struct {
	mu           sync.Mutex
	callbacks    []Callback
	managers     []Manager
	errorHandler ErrorHandler
}

// New initializes GracefulShutdown.
func New() *GracefulShutdown {
	return &GracefulShutdown{}
}

// Start calls Start on all added managers.
func (gs *GracefulShutdown) Start() error {
	for _, manager := range gs.managers {
		if err := manager.Start(gs); err != nil {
			return err
		}
	}

	return nil
}

// AddShutdownManager adds a Manager that will listen to shutdown requests.
func (gs *GracefulShutdown) AddShutdownManager(manager Manager) {
	gs.managers = append(gs.managers, manager)
}

// AddShutdownCallback adds a Callback that will be called when a shutdown is requested.
func (gs *GracefulShutdown) AddShutdownCallback(callback Callback) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.callbacks = append(gs.callbacks, callback)
}

// SetErrorHandler sets an ErrorHandler that will be called when an error
// is encountered in Callback or in Manager.
func (gs *GracefulShutdown) SetErrorHandler(errorHandler ErrorHandler) {
	gs.errorHandler = errorHandler
}

// StartShutdown is called from a Manager and initiates shutdown:
// ShutdownStart on the manager, every callback concurrently, then ShutdownFinish.
func (gs *GracefulShutdown) StartShutdown(sm Manager) {
	gs.ReportError(sm.ShutdownStart())

	gs.mu.Lock()
	callbacks := append([]Callback(nil), gs.callbacks...)
	gs.mu.Unlock()

	var wg sync.WaitGroup
	for _, callback := range callbacks {
		wg.Add(1)
		go func(callback Callback) {
			defer wg.Done()

			gs.ReportError(callback.OnShutdown(sm.GetName()))
		}(callback)
	}

	wg.Wait()

	gs.ReportError(sm.ShutdownFinish())
}

// ReportError forwards err to the error handler, if one is set.
func (gs *GracefulShutdown) ReportError(err error) {
	if err != nil && gs.errorHandler != nil {
		gs.errorHandler.OnError(err)
	}
}
