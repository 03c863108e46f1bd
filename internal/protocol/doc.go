// Package protocol reads laboratory protocols written in HCL and replays
// them into a recipe.Recipe.
//
// Loading happens in two phases. Load parses every .hcl file under the
// given paths into a Model, which is independent of the file format and
// keeps the order in which stages and steps were written. Build then turns
// the Model into a recipe through the ordinary declaration API, so every
// validation a programmatic caller gets also applies to protocol files.
//
// A protocol declares substances, containers and plates, followed by steps,
// optionally grouped into stages:
//
//	substance "water" {
//	  kind       = "liquid"
//	  molar_mass = 18.0153
//	  density    = 1
//	}
//
//	plate "assay" {
//	  rows       = 8
//	  columns    = 12
//	  max_volume = "200 uL"
//	}
//
//	stage "prep" {
//	  step "create_solution" {
//	    solute         = substance.NaCl
//	    solvent        = substance.water
//	    name           = "salt"
//	    concentration  = "1 M"
//	    total_quantity = "10 mL"
//	  }
//	}
//
//	step "transfer" {
//	  from     = vessel["salt"]
//	  to       = "assay[A1:H1]"
//	  quantity = "10 uL"
//	}
//
// Substances are referenced as substance.<name> or by their name as a
// string. Vessels are referenced as vessel["name"] or by name; a well
// selection is appended in brackets.
package protocol
