// Package filestore is the flat-file storage backend.
//
// The whole object table lives in one JSON document keyed "<Kind>.<id>":
//
//	{
//	  "City.9f1c...": {"__class__": "City", "id": "9f1c...", "name": "San Francisco", ...},
//	  "PlaceAmenity.<place_id>.<amenity_id>": {"__class__": "PlaceAmenity", ...},
//	  "State.41ab...": {"__class__": "State", "id": "41ab...", "name": "California", ...}
//	}
//
// Keys are sorted and strings NFC-normalized, so identical tables always
// produce identical bytes. Save writes a temp file in the target directory,
// syncs it and renames it over the target; an interrupted Save leaves the
// previous file intact. Records with an unrecognized "__class__" are skipped
// on reload.
package filestore
