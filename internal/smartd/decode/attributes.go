// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package decode

// KnownATAAttribute describes a well-known ATA SMART attribute id. Vendors
// are free to reuse ids for unrelated purposes, so this table is a default,
// overridable by a DevConfig attribute-name remapping.
type KnownATAAttribute struct {
	ID      int64
	Name    string
	Prefail bool
}

// https://en.wikipedia.org/wiki/Self-Monitoring,_Analysis_and_Reporting_Technology
var knownATAAttributes = []KnownATAAttribute{
	{1, "Raw_Read_Error_Rate", true},
	{2, "Throughput_Performance", false},
	{3, "Spin_Up_Time", true},
	{4, "Start_Stop_Count", false},
	{5, "Reallocated_Sector_Ct", true},
	{7, "Seek_Error_Rate", true},
	{8, "Seek_Time_Performance", true},
	{9, "Power_On_Hours", false},
	{10, "Spin_Retry_Count", true},
	{11, "Calibration_Retry_Count", true},
	{12, "Power_Cycle_Count", false},
	{13, "Soft_Read_Error_Rate", false},
	{190, "Airflow_Temperature_Cel", false},
	{191, "G_Sense_Error_Rate", false},
	{192, "Power_Off_Retract_Count", false},
	{193, "Load_Unload_Cycle_Count", false},
	{194, "Temperature_Celsius", false},
	{195, "Hardware_ECC_Recovered", false},
	{196, "Reallocated_Event_Count", true},
	{197, "Current_Pending_Sector", true},
	{198, "Offline_Uncorrectable", true},
	{199, "UDMA_CRC_Error_Count", false},
	{200, "Write_Error_Rate", false},
	{220, "Disk_Shift", false},
	{222, "Loaded_Hours", false},
	{223, "Load_Unload_Retry_Count", false},
	{224, "Load_Friction", false},
	{226, "Load_In_Time", false},
	{227, "Torque_Amplification_Count", false},
	{228, "Power_Off_Retract_Count", false},
	{231, "Temperature_Celsius", false},
	{233, "Media_Wearout_Indicator", false},
	{240, "Head_Flying_Hours", false},
	{241, "Total_LBAs_Written", false},
	{242, "Total_LBAs_Read", false},
	{250, "Read_Error_Retry_Rate", false},
}

var attrIndexByID map[int64]KnownATAAttribute

func init() {
	attrIndexByID = make(map[int64]KnownATAAttribute, len(knownATAAttributes))
	for _, a := range knownATAAttributes {
		attrIndexByID[a.ID] = a
	}
}

// LookupATAAttributeName returns the well-known name for an attribute id,
// or "" if the id is vendor-specific/unknown.
func LookupATAAttributeName(id int64) (name string, prefail bool, known bool) {
	a, ok := attrIndexByID[id]
	if !ok {
		return "", false, false
	}
	return a.Name, a.Prefail, true
}

// PendingSectorAttributeIDs are the attribute ids singled out for the
// -C/-U current-pending / offline-uncorrectable warnings when no explicit
// id list was configured.
const (
	DefaultCurrentPendingSectorID     int64 = 197
	DefaultOfflineUncorrectableID     int64 = 198
)
