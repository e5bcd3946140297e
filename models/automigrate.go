package models

// AllTables returns a slice of all tables in the database.
func AllTables() []interface{} {
	return []interface{}{
		&User{},
		&Actor{},
		&Key{},
		&Follow{},
		&Post{},
	}
}
