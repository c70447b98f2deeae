// Package events provides task lifecycle events and a simple in-process
// emitter.
//
// The worker emits events as tasks start, progress and finish. Observers
// such as metrics collectors register handlers without the worker knowing
// about them.
//
// The primary components are:
// - TaskEvent: a single lifecycle change of one task
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
