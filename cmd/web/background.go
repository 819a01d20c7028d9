package main

import (
	"context"
	"fmt"
	"time"
)

// background runs fn outside the request. main waits for these before
// closing the event publisher.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.errorLog.Println(fmt.Errorf("%s", err))
			}
		}()
		fn()
	}()
}

// publish emits a domain event. Broker trouble is logged and never fails the
// request that produced the event.
func (app *application) publish(key string, v any) {
	app.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.events.Publish(ctx, key, v); err != nil {
			app.errorLog.Printf("publish %s: %v", key, err)
		}
	})
}
