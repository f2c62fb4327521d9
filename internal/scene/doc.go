// Package scene is the embedded side of the bridge: a goja script runtime
// with its own event loop, a registry of named addressable objects, and a
// fixed-rate frame cycle.
//
// Messages addressed to scene objects are never delivered immediately.
// Post queues them and the next frame drains the queue on the loop
// goroutine, so there is up to one frame of latency between posting and
// the method running. A target whose object or method cannot be resolved
// at delivery time is dropped without any signal to the sender.
//
// Scripts reach the scene through a native module:
//
//	const scene = require('bridge:scene');
//	scene.declare('showHostMenu');
//	scene.add('Player', {
//	    Move: function (dir) { showHostMenu(); },
//	});
//	scene.onFrame(function (n) {});
package scene
