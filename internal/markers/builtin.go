package markers

import "net/http"

var (
	profileMarkers   = []string{"User Preset", "API's keys", "Database user"}
	dashboardMarkers = []string{"Total Space", "Bases", "Databases"}
	databaseMarkers  = []string{
		"{{database}}",
		"Investigate your database. Look to your data from browser.",
		"Seed yor database with your or shared scripts",
	}
	pointMarkers = []string{"{{database}}", "Backup", "New backup", "Create new backup"}
)

const upgradedMarker = "It's your"

// Strict returns the detailed assertion set: echoed login, upgrade state,
// exact change counts, literal column names and inserted values.
func Strict() *Catalogue {
	return &Catalogue{
		Name: "strict",
		Checks: map[string]CheckSpec{
			LoadRegistration:  ok(),
			FillRegistration:  ok("{{login}}"),
			LoadProfile:       {Status: http.StatusOK, Contains: list(profileMarkers), Absent: []string{upgradedMarker}},
			UpgradeUser:       ok(append(list(profileMarkers), upgradedMarker)...),
			LoadDashboard:     ok(dashboardMarkers...),
			CreateDatabase:    ok("Database created"),
			LoadProfileAgain:  ok(profileMarkers...),
			LoadHome:          ok(dashboardMarkers...),
			LoadDatabase:      ok(databaseMarkers...),
			LoadBackups:       ok(pointMarkers...),
			CreatePoint:       ok("Backup created successfully", "{{point}}"),
			LoadSQL:           ok("to run current query.", "to run all query."),
			CreateTable:       ok("DDL/DML performed"),
			InsertFirst:       ok("DDL/DML performed Changed: 1"),
			InsertSecond:      ok("DDL/DML performed Changed: 1"),
			LoadDatabaseAgain: ok(databaseMarkers...),
			LoadTables:        ok("Table name", "test"),
			LoadTable:         ok("col_name", "col_value", "test1", "test2"),
			LoadDatabaseThird: ok(databaseMarkers...),
		},
	}
}

// Loose returns the status-and-generic-marker assertion set. It also revisits
// the backup points page at the end of the journey.
func Loose() *Catalogue {
	return &Catalogue{
		Name:        "loose",
		ResetPoints: true,
		Checks: map[string]CheckSpec{
			LoadRegistration:  ok(),
			FillRegistration:  ok(),
			LoadProfile:       ok(profileMarkers...),
			UpgradeUser:       ok(append(list(profileMarkers), upgradedMarker)...),
			LoadDashboard:     ok(dashboardMarkers...),
			CreateDatabase:    ok("Database created"),
			LoadProfileAgain:  ok(profileMarkers...),
			LoadHome:          ok(dashboardMarkers...),
			LoadDatabase:      ok(databaseMarkers...),
			LoadBackups:       ok(pointMarkers...),
			CreatePoint:       ok("Backup created successfully"),
			LoadSQL:           ok("to run current query."),
			CreateTable:       ok("DDL/DML performed"),
			InsertFirst:       ok("DDL/DML performed"),
			InsertSecond:      ok("DDL/DML performed"),
			LoadDatabaseAgain: ok(databaseMarkers...),
			LoadTables:        ok("Table name"),
			LoadTable:         ok("test"),
			LoadDatabaseThird: ok(databaseMarkers...),
			ResetPoints:       ok(pointMarkers...),
		},
	}
}

func ok(contains ...string) CheckSpec {
	return CheckSpec{Status: http.StatusOK, Contains: list(contains)}
}

func list(in []string) []string {
	return append([]string(nil), in...)
}
