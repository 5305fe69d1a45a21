// Package harness runs dataset scenarios: scripted sequences of batch and
// single-event writes against a fresh dataset, followed by assertions on
// what ended up in MainTable and the CodeState store.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  representation: Git
//	  default_project_id: main
//	steps:
//	  - batch:
//	      events:
//	        - {EventType: Submit, EventID: e1, SubjectID: s1, ToolInstances: ide, CodeStateID: tmp-1}
//	      codestates:
//	        tmp-1: {code: "print(1)"}
//	    expect:
//	      success: true
//	      warning_count: 1
//	  - log:
//	      event_type: Session.Start
//	      state: {SubjectID: s1, ToolInstances: ide, SessionID: sess-1}
//	      columns: {CodeState: "print(1)"}
//	assertions:
//	  - type: event_count
//	    count: 2
//	  - type: event
//	    index: 0
//	    expect: {CodeStateID: "..."}
//	  - type: file_exists
//	    path: CodeStates/s1/main/.git
//
// config holds DataConfig fields over the defaults; root_path is always the
// directory the scenario runs in.
//
// # Assertion Types
//
//   - event_count: MainTable holds exactly count rows
//   - event: the row at index has the expected column values (subset match)
//   - codestate_rows: the CodeStates table holds count rows (optionally for one id)
//   - file_exists: path exists under the dataset root
//
// # Deterministic Testing
//
// EventIDs and temp ids generated by log steps come from
// testutil.SequenceGenerator ("id-1", "id-2", ...), and the Git
// representation commits with testutil.DeterministicClock, so identical
// scenarios produce identical datasets and golden snapshots.
package harness
