package main

import (
	_ "github.com/jroots/jroots/src/admintools"
	_ "github.com/jroots/jroots/src/migration"
	"github.com/jroots/jroots/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
