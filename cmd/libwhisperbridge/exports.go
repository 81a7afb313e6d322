// Command libwhisperbridge builds the bridge as a C shared library so a
// managed runtime (JNI, JNA, P/Invoke, ctypes) can load a model and
// transcribe PCM through two calls.
//
//	go build -buildmode=c-shared -o libwhisperbridge.so ./cmd/libwhisperbridge
//
// Strings returned by WhisperBridgeTranscribe are malloc'd and must be
// released with WhisperBridgeFreeString.
package main

/*
#include <stdbool.h>
#include <stdlib.h>
*/
import "C"

import "unsafe"

//export WhisperBridgeLoadModel
func WhisperBridgeLoadModel(path *C.char) C.bool {
	if path == nil {
		return C.bool(false)
	}
	return C.bool(loadModel(C.GoString(path)))
}

//export WhisperBridgeTranscribe
func WhisperBridgeTranscribe(data *C.char, length C.int, sampleRate C.int) *C.char {
	var pcm []byte
	if data != nil && length > 0 {
		pcm = C.GoBytes(unsafe.Pointer(data), length)
	}
	return C.CString(transcribe(pcm, int(sampleRate)))
}

//export WhisperBridgeFreeString
func WhisperBridgeFreeString(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export WhisperBridgeRelease
func WhisperBridgeRelease() {
	release()
}

func main() {}
