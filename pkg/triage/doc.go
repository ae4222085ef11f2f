// Package triage classifies GitHub issues into "area" labels with a model
// trained by the triage command.
//
// Quick start:
//
//	c, err := triage.New(triage.WithModelPath("Models/model.bin"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	res, _ := c.Classify("Entity Framework crashes", "When connecting to the database, EF is crashing")
//	fmt.Println(res.Area) // area-System.Data
//
// A Classifier is safe for concurrent use. Create once, reuse across
// requests.
package triage
