package cha

import (
	"fmt"
	"sort"

	"github.com/muniheat/dhcore/internal/catalog"
	"github.com/muniheat/dhcore/internal/streetgraph"
)

// treeNode is the adjacency-list representation used to root the trunk
// tree at the plant and sum downstream design loads (§4.4).
type treeNode struct {
	children []string
}

// BuildNetwork attaches building loads to the routed trunk, sizes every
// trunk edge from its aggregated downstream mass flow, and appends a
// service-supply/service-return pipe pair per building (§4.3, §4.4). It
// does not stabilize the network — that is Stabilize's job.
func BuildNetwork(
	trunk *streetgraph.Trunk,
	attachments []streetgraph.Attachment,
	buildingDesignLoadKW map[string]float64,
	supplyTempC, returnTempC, cpJPerKgK float64,
	pipeCat *catalog.PipeCatalog,
) (*Network, error) {
	adj := make(map[string]*treeNode)
	parent := make(map[string]string)
	for _, e := range trunk.Edges {
		if adj[e.FromID] == nil {
			adj[e.FromID] = &treeNode{}
		}
		if adj[e.ToID] == nil {
			adj[e.ToID] = &treeNode{}
		}
	}
	// Root a directed tree at the plant by orienting each undirected edge
	// child->parent, comparing the two ends' distance-from-plant.
	for _, e := range trunk.Edges {
		da, db := trunk.DistanceM[e.FromID], trunk.DistanceM[e.ToID]
		if e.FromID == trunk.PlantNodeID {
			da = 0
		}
		if e.ToID == trunk.PlantNodeID {
			db = 0
		}
		child, par := e.FromID, e.ToID
		if da < db {
			child, par = e.ToID, e.FromID
		}
		parent[child] = par
		adj[par].children = append(adj[par].children, child)
	}
	for _, n := range adj {
		sort.Strings(n.children)
	}

	nodeBuildingLoad := make(map[string]float64)
	for _, a := range attachments {
		load := buildingDesignLoadKW[a.BuildingID]
		nodeBuildingLoad[a.NodeID] += ApplyDesignMargin(load)
	}

	downstream := make(map[string]float64)
	var sumDownstream func(node string) float64
	sumDownstream = func(node string) float64 {
		total := nodeBuildingLoad[node]
		children := []string{}
		if tn, ok := adj[node]; ok {
			children = tn.children
		}
		for _, c := range children {
			total += sumDownstream(c)
		}
		downstream[node] = total
		return total
	}
	sumDownstream(trunk.PlantNodeID)

	net := &Network{PlantNodeID: trunk.PlantNodeID, SupplyTempC: supplyTempC, ReturnTempC: returnTempC}

	for _, e := range trunk.Edges {
		child := e.FromID
		if parent[e.ToID] == e.FromID {
			child = e.ToID
		}
		loadKW := downstream[child]
		mdot := MassFlowKgS(loadKW, cpJPerKgK, supplyTempC, returnTempC)
		sized := SizePipe(mdot, RoleTrunkSupply, pipeCat)

		net.Pipes = append(net.Pipes,
			Pipe{
				ID: fmt.Sprintf("trunk_supply_%s_%s", e.FromID, e.ToID), FromNode: e.FromID, ToNode: e.ToID,
				Role: RoleTrunkSupply, LengthM: e.LengthM, DN: sized.Row.DN,
				InnerDiameterM: sized.Row.InnerDiameterM, RoughnessMM: sized.Row.RoughnessMM,
				MassFlowKgS: mdot,
			},
			Pipe{
				ID: fmt.Sprintf("trunk_return_%s_%s", e.FromID, e.ToID), FromNode: e.ToID, ToNode: e.FromID,
				Role: RoleTrunkReturn, LengthM: e.LengthM, DN: sized.Row.DN,
				InnerDiameterM: sized.Row.InnerDiameterM, RoughnessMM: sized.Row.RoughnessMM,
				MassFlowKgS: mdot,
			},
		)
	}

	buildingIDs := make([]string, 0, len(attachments))
	for _, a := range attachments {
		buildingIDs = append(buildingIDs, a.BuildingID)
	}
	sort.Strings(buildingIDs)
	attByBuilding := make(map[string]streetgraph.Attachment, len(attachments))
	for _, a := range attachments {
		attByBuilding[a.BuildingID] = a
	}
	for _, bid := range buildingIDs {
		a := attByBuilding[bid]
		loadKW := ApplyDesignMargin(buildingDesignLoadKW[bid])
		mdot := MassFlowKgS(loadKW, cpJPerKgK, supplyTempC, returnTempC)
		sized := SizePipe(mdot, RoleServiceSupply, pipeCat)
		serviceLen := a.DistanceM
		if serviceLen <= 0 {
			serviceLen = 0.1
		}
		bldgJunction := "bldg_" + bid
		net.Pipes = append(net.Pipes,
			Pipe{
				ID: "service_supply_" + bid, FromNode: a.NodeID, ToNode: bldgJunction,
				Role: RoleServiceSupply, LengthM: serviceLen, DN: sized.Row.DN,
				InnerDiameterM: sized.Row.InnerDiameterM, RoughnessMM: sized.Row.RoughnessMM,
				MassFlowKgS: mdot,
			},
			Pipe{
				ID: "service_return_" + bid, FromNode: bldgJunction, ToNode: a.NodeID,
				Role: RoleServiceReturn, LengthM: serviceLen, DN: sized.Row.DN,
				InnerDiameterM: sized.Row.InnerDiameterM, RoughnessMM: sized.Row.RoughnessMM,
				MassFlowKgS: mdot,
			},
		)
	}

	return net, nil
}
