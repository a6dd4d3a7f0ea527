// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package broadcast publishes state-change notifications to session
subscribers with duplicate suppression and redundant delivery.

# Publishing

	d := broadcast.NewDispatcher(broadcast.Config{})
	d.Publish(models.ActionVoteAdded, state)

Identical consecutive payloads (compared by xxhash of the serialized
state) are not re-broadcast. Every published message is re-sent once
after a short delay, tagged Retry with the same broadcast_id, so
subscribers who attached mid-write still catch up.

# Subscribing

	id, ch := d.Subscribe()
	defer d.Unsubscribe(id)
	for msg := range ch { ... }

Subscribers apply messages through an Applier, which discards anything
not newer than the last applied version:

	applier := broadcast.NewApplier()
	if applier.Apply(msg) { render(msg.State) }

Close cancels all pending re-sends and closes subscriber channels; it
is part of process shutdown.
*/
package broadcast
