package app_test

import (
	"fmt"
)

// battleLog returns a small gen8ou battle between p1 and p2 won by p1.
func battleLog(p1, p2 string) []byte {
	return []byte(fmt.Sprintf(`{
  "p1": %[1]q,
  "p2": %[2]q,
  "winner": %[1]q,
  "format": "gen8ou",
  "roomid": "battle-gen8ou-99",
  "p1rating": {"elo": 1200},
  "p2rating": {"elo": 1100},
  "timestamp": "Mon Nov 23 2020 20:15:00 GMT-0500",
  "inputLog": [">player p1 {\"name\":\"%[1]s\",\"avatar\":\"1\"}", ">player p2 {\"name\":\"%[2]s\",\"avatar\":\"2\"}", ">chat hi"],
  "log": ["|player|p1|%[1]s|1|", "|player|p2|%[2]s|2|", "|c|%[1]s|hi", "|move|p1a: %[1]s|Tackle|p2a: Pikachu", "|win|%[1]s"]
}`, p1, p2))
}
