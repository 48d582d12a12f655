package main

import "time"

const (
	defaultFixtureFile = "fixtures.yaml"
	defaultSheetFile   = "floorplan.pdf"
	geocodeTimeout     = 30 * time.Second
	sheetLinkBase      = "http://localhost:3210"
)
