/*
Svcframe is a framework for small distributed services talking over ZeroMQ. Services exchange
schema-validated msgpack messages through named connections and replicate state through
state channels.

Connections come in four wire patterns (plus an in-process external requester):

	requester  -> replyer      synchronous request/reply
	publisher  -> subscriber   one-to-many broadcast, optional topic

State channels replicate a map between processes:

	full_update_out  -> full_update_in    every update is the complete state
	delta_update_out -> delta_update_in   sequenced deltas on top of a snapshot; a gap in
	                                      the sequence triggers a snapshot request

Every connection and state declares a schema.Model. Outbound calls go through a ToSend
function; inbound frames are dispatched by the service event loop to Handlers.

E.g.:

	Service echo
		+ in  connection echo_in   (replyer,   on_new_request: echoHandler)
		+ out connection echo_out  (requester)
*/
package svcframe
