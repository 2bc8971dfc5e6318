// Command inpaintstub serves a stand-in inpainting endpoint that fills masked
// pixels with the mean colour of the rest of the image. It speaks the same
// JSON contract as the real service so generation runs can go offline.
package main

import (
	"flag"
	"log"

	"scenegen/internal/inpaint"

	"github.com/gin-gonic/gin"
)

func main() {
	addr := flag.String("addr", ":9000", "Listen address")
	debug := flag.Bool("debug", false, "Run gin in debug mode")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := inpaint.NewStubRouter()
	log.Printf("Serving stub inpainting on %s/inpaint", *addr)
	if err := r.Run(*addr); err != nil {
		log.Fatal(err)
	}
}
