// Package pubsub provides a topic-keyed listener registry.
//
// Listeners are called synchronously, on the publisher's goroutine, in the
// order they subscribed:
//
//	ps := pubsub.New()
//	unsub := ps.Subscribe("change", func(v any) { fmt.Println(v) })
//	ps.Publish("change", 42) // prints 42
//	unsub()
//
// SubscribeOnce registers a listener that is removed before its first
// delivery, so a reentrant Publish from inside it does not call it again.
//
// Publishing iterates over a copy of the listener list; listeners may
// subscribe or unsubscribe (themselves or others) while being notified.
// A listener removed during a publish is not called for the remainder of
// that publish.
package pubsub
