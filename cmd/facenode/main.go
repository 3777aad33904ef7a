// facenode runs face detection on incoming camera frames and publishes the
// result of every frame as either bounding boxes or a no-face message.
//
// Usage:
//
//	facenode run --config facenode.yaml
//	facenode detect photo.jpg
package main

func main() {
	Execute()
}
