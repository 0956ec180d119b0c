// Package rules reads flow rules from YAML files and keeps a RuleManager in
// sync with the file on disk.
//
//	set, err := rules.LoadFile("rules.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := manager.LoadRules(set); err != nil {
//	    return err
//	}
//
//	w, err := rules.NewWatcher("rules.yaml", manager)
//	go w.Watch(ctx)
//	defer w.Stop()
package rules
