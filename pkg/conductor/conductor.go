package conductor

import (
	"context"
	"sync"
	"time"

	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

const (
	startupTimeout  time.Duration = time.Duration(5 * time.Second)
	shutdownTimeout time.Duration = time.Duration(5 * time.Second)
)

// Service is started with three channels: send on the first when ready,
// wait for a context on the third, then send on the second once stopped.
type Service interface {
	Run(chan bool, chan bool, chan context.Context) error
}

type serviceState struct {
	name     string
	service  Service
	ready    chan bool
	stopped  chan bool
	shutdown chan context.Context
}

type Conductor struct {
	mu           sync.Mutex
	started      bool          // Have we been started yet?
	noisy        bool          // Should we log progress?
	log          logger.Logger // where progress goes
	startTimeout time.Duration // How long should we wait for each service to start before we die?
	stopTimeout  time.Duration // How long should we wait for each service to stop before we give up on it?
	shutdown     chan bool     // closed when everything has stopped, returned from Start()
	stopOnce     sync.Once
	services     []*serviceState
	running      []*serviceState // started ok, in start order
}

/* Create a new conductor instance, accepts Option funcs
for changing default behaviours */
func NewConductor(opts ...func(*Conductor)) *Conductor {
	c := Conductor{
		log:          logger.NoopLogger{},
		startTimeout: startupTimeout,
		stopTimeout:  shutdownTimeout,
		shutdown:     make(chan bool),
		services:     []*serviceState{},
	}

	for _, optFn := range opts {
		optFn(&c)
	}
	return &c
}

/* Add a Service with a name to be started in order when Start is called */
func (c *Conductor) Service(name string, service Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		panic("Cannot call Conductor.Service after Conductor.Start")
	}
	c.services = append(c.services,
		&serviceState{name, service, make(chan bool, 1), make(chan bool, 1), make(chan context.Context, 1)})
}

/* Start the conductor, each service is started in turn; if one fails,
the ones already running are stopped. */
func (c *Conductor) Start() chan bool {
	c.mu.Lock()
	c.started = true
	services := c.services
	c.mu.Unlock()

	// start each Service one at a time, this gives us service dependency order.
	for _, srv := range services {
		c.logf("starting service", srv.name)
		err := srv.service.Run(srv.ready, srv.stopped, srv.shutdown)
		if err != nil {
			// Service has failed to start with an error, shutdown everything
			c.log.Error("service exited", map[string]any{"service": srv.name, "err": err.Error()})
			go c.Stop()
			break
		}
		select {
		case <-time.After(c.startTimeout):
			// Service has timed out, shutdown everything
			c.log.Error("service timed out during startup", map[string]any{"service": srv.name})
			go c.Stop()
		case <-srv.ready:
			c.mu.Lock()
			c.running = append(c.running, srv)
			c.mu.Unlock()
			c.logf("service started", srv.name)
			continue
		}
		break
	}
	return c.shutdown
}

// Stop shuts running services down one at a time, last started first,
// each within the stop timeout. Only the first call has any effect.
func (c *Conductor) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		running := append([]*serviceState(nil), c.running...)
		c.mu.Unlock()

		for i := len(running) - 1; i >= 0; i-- {
			s := running[i]
			ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
			c.logf("requesting shutdown", s.name)
			s.shutdown <- ctx
			select {
			case <-s.stopped:
				c.logf("shutdown complete", s.name)
			case <-time.After(c.stopTimeout + time.Second):
				c.log.Warn("timeout exceeded waiting for service to stop", map[string]any{"service": s.name})
			}
			cancel()
		}
		c.logf("all services stopped", "")
		close(c.shutdown)
	})
}

func (c *Conductor) logf(msg string, service string) {
	if c.noisy {
		c.log.Info(msg, map[string]any{"service": service})
	}
}
