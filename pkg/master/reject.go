package master

// rejectOperation evaluates the reject rules against the current version of
// the target object, VersionNonexistent meaning absent. Rules are checked
// in order; the first match wins. Version-relative rules are inert when the
// object does not exist.
func rejectOperation(rules *RejectRules, version uint64) error {
	if rules == nil {
		return nil
	}
	if version == VersionNonexistent {
		if rules.DoesntExist {
			return ErrObjectDoesntExist
		}
		return nil
	}
	if rules.Exists {
		return ErrObjectExists
	}
	if rules.VersionLeGiven && version <= rules.GivenVersion {
		return ErrWrongVersion
	}
	if rules.VersionNeGiven && version != rules.GivenVersion {
		return ErrWrongVersion
	}
	return nil
}
