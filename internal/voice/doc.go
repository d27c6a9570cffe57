// Package voice runs full-duplex voice sessions over WebSocket. The bundled
// agent is simulated: it echoes each utterance back after a short speaking
// window, and the hub's speaking flag drives the chat view's indicator.
package voice
