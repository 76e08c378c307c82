package receivers

import (
	"context"
	"log"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"gopkg.in/natefinch/lumberjack.v2"
)

// MessageLogger appends every bus message it receives to a rotating
// event log, one line per message.
type MessageLogger struct {
	Rec  chan gate.Message
	file *lumberjack.Logger
	out  *log.Logger
}

func NewMessageLogger(path string) MessageLogger {
	file := &lumberjack.Logger{Filename: path, Compress: true}
	return MessageLogger{
		Rec:  make(chan gate.Message, 1000),
		file: file,
		out:  log.New(file, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l MessageLogger) GetChan() chan gate.Message {
	return l.Rec
}

func (l MessageLogger) write(msg gate.Message) {
	l.out.Printf("%s:%s (%s): %s", msg.Type, msg.Event, msg.ID, msg.Message)
}

func (l MessageLogger) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			case <-stop:
				// flush what is already queued before closing the file
				for {
					select {
					case msg := <-l.Rec:
						l.write(msg)
						continue
					default:
					}
					break
				}
				l.file.Close()
				stopped <- true
				return
			case msg := <-l.Rec:
				l.write(msg)
			}
		}
	}()
	return nil
}

// SetupLoggers registers one MessageLogger per [loggers.<name>] entry.
func SetupLoggers(cond *conductor.Conductor, bus Bus, conf gate.Config, log logger.Logger) {
	for name, c := range conf.Loggers {
		l := NewMessageLogger(c.Path)
		cond.Service("Logger "+name, l)
		bus.Register(l, parseTypes("logger "+name, c.Types, log)...)
	}
}
